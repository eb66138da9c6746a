// cmd/tools/call-dialer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadcapture/internal/common/config"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/models"
	"leadcapture/internal/phone"
	"leadcapture/internal/voice"
)

func main() {
	number := flag.String("number", "", "Number to call (any US format or E.164)")
	configPath := flag.String("config", "", "Config file (defaults to configs/config.yaml)")
	status := flag.String("status", "", "Print the status of an existing call id instead of dialing")
	noWait := flag.Bool("no-wait", false, "Return once the call is queued")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *number == "" && *status == "" {
		fmt.Println("Error: -number or -status is required.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console")

	vc := cfg.Integrations.Voice
	client := voice.NewAPIClient(voice.ClientConfig{
		APIBaseURL:    vc.APIBaseURL,
		APIKey:        vc.APIKey,
		AssistantID:   vc.AssistantID,
		PhoneNumberID: vc.PhoneNumberID,
		Timeout:       config.GetDuration(vc.Timeout),
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *status != "" {
		st, err := client.GetCall(ctx, *status)
		if err != nil {
			fmt.Printf("Error fetching call: %v\n", err)
			os.Exit(1)
		}
		printStatus(st)
		return
	}

	if !phone.IsValid(*number) {
		fmt.Printf("Error: %q is not a valid US phone number.\n", *number)
		os.Exit(1)
	}

	call, err := client.StartCall(ctx, *number)
	if err != nil {
		fmt.Printf("Error starting call: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Calling %s (call %s, status %s)\n", phone.Display(*number), call.ID, call.Status)
	if *noWait {
		return
	}

	poller := voice.NewPoller(client,
		config.GetDuration(vc.PollInterval),
		config.GetDuration(vc.PollTimeout),
		log,
	)
	var last models.CallStatus
	final, err := poller.Poll(ctx, call.ID, func(st *voice.CallStatus) {
		if st.Status != last {
			last = st.Status
			fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), st.Status)
		}
	})
	if final != nil {
		printStatus(final)
	}
	if err != nil {
		fmt.Printf("Polling stopped: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func printStatus(st *voice.CallStatus) {
	fmt.Printf("Call %s: %s\n", st.ID, st.Status)
	if st.EndedReason != "" {
		fmt.Printf("  ended: %s\n", st.EndedReason)
	}
	if st.Duration != nil {
		fmt.Printf("  duration: %.0fs\n", *st.Duration)
	}
	if st.Cost != nil {
		fmt.Printf("  cost: $%.2f\n", *st.Cost)
	}
	if st.Transcript != "" {
		fmt.Printf("  transcript:\n%s\n", st.Transcript)
	}
}
