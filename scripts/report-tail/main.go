package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FirepowerKit/internal/config"
	"FirepowerKit/internal/publish"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type args struct {
	Config  string `arg:"-c,--config" default:"configs/config.yaml" help:"path to the YAML config"`
	URL     string `arg:"--url" help:"NATS server, overrides nats.url"`
	Subject string `arg:"--subject" help:"subject to follow, overrides nats.subject"`
	Hosts   bool   `arg:"--hosts" help:"print the host table instead of the raw summary"`
}

func main() {
	var a args
	arg.MustParse(&a)

	cfg, _, err := config.LoadConfigOrDefault(a.Config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	natsCfg := cfg.NATS
	if a.URL != "" {
		natsCfg.URL = a.URL
	}
	if a.Subject != "" {
		natsCfg.Subject = a.Subject
	}

	sub, err := publish.NewSubscriber(natsCfg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	marshal := protojson.MarshalOptions{Multiline: true, Indent: "  "}
	handler := func(msg *structpb.Struct) {
		if a.Hosts {
			runID := msg.GetFields()["run_id"].GetStringValue()
			for i, h := range publish.HostsFromMessage(msg) {
				fmt.Printf("%s [%2d] %15s %12d\n", runID, i+1, h.Host, h.Total)
			}
			return
		}
		out, err := marshal.Marshal(msg)
		if err != nil {
			log.Errorf("Failed to render summary: %v", err)
			return
		}
		fmt.Println(string(out))
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("Shutting down...")
}
