// Command skyloc-client is a reference sample client: builds a request
// context from a synthesized scan, finalizes it, sends the frame over
// the sample transport, and decodes the response — exercising the full
// API surface the way sample_client/sample_client.c does, using the
// repo's domain-stack libraries instead of raw BSD sockets.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/skyloc/embedded-client/internal/clockutil"
	"github.com/skyloc/embedded-client/internal/logger"
	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/config"
	"github.com/skyloc/embedded-client/pkg/metrics"
	"github.com/skyloc/embedded-client/pkg/persist"
	"github.com/skyloc/embedded-client/pkg/request"
	"github.com/skyloc/embedded-client/pkg/session"
	"github.com/skyloc/embedded-client/pkg/sky"
	"github.com/skyloc/embedded-client/pkg/transport"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to bootstrap YAML config")
		serverAddr = pflag.String("server", "", "override the config's server_addr")
		pgDSN      = pflag.String("persist-dsn", "", "optional Postgres DSN for session-state persistence")
	)
	pflag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: skyloc-client -c <config.yaml>")
		os.Exit(2)
	}

	bootstrap, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *serverAddr != "" {
		bootstrap.ServerAddr = *serverAddr
	}

	log, err := logger.New(logger.Config{
		Path: bootstrap.LogPath, Level: bootstrap.LogLevel, Format: "console",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	rawLogf := log.CallbackFor()
	logf := func(level session.LogLevel, msg string) { rawLogf(logger.Level(level), msg) }

	var pstore *persist.Store
	if *pgDSN != "" {
		pstore, err = persist.Open(*pgDSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open persistence store:", err)
			os.Exit(1)
		}
		defer pstore.Close()
	}

	reg := prometheus.NewRegistry()
	mt := metrics.New("skyloc_client", reg)

	creds, err := credentialsFrom(bootstrap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap credentials:", err)
		os.Exit(1)
	}

	var state []byte
	if pstore != nil {
		if state, err = pstore.Load(bootstrap.DeviceID); err != nil {
			fmt.Fprintln(os.Stderr, "load persisted state:", err)
		}
	}

	s, err := sky.Open(creds, state, nil, session.LogDebug, session.LogFunc(logf),
		session.RandFunc(cryptoRand), session.TimeFunc(clockutil.Real()))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open session:", err)
		os.Exit(1)
	}

	ctx, err := sky.NewRequest(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, "new request:", err)
		os.Exit(1)
	}

	for _, b := range sampleScan() {
		if err := sky.AddAPBeacon(ctx, b.mac, b.freq, b.rssi, b.connected, uint32(time.Now().Unix())); err != nil {
			logf(session.LogWarning, fmt.Sprintf("add beacon: %v", err))
		}
	}

	outcome, frame, loc, respSize, err := sky.FinalizeRequest(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "finalize request:", err)
		os.Exit(1)
	}
	mt.ObserveOutcome(outcome == request.OutcomeLocation, false, len(frame))

	switch outcome {
	case request.OutcomeLocation: // cache hit, no network round trip
		fmt.Printf("cache hit: %+v\n", loc)
		return
	case request.OutcomeRequest:
		client := transport.New(transport.Config{URL: bootstrap.ServerAddr})
		defer client.Close()

		resp, err := client.Send(context.Background(), frame)
		if err != nil {
			fmt.Fprintln(os.Stderr, "send request:", err)
			os.Exit(1)
		}
		mt.ObserveResponse(len(resp))
		if len(resp) > respSize {
			logf(session.LogWarning, fmt.Sprintf("response %d bytes exceeds worst-case budget %d", len(resp), respSize))
		}

		loc, err = sky.DecodeResponse(ctx, resp)
		if err != nil {
			fmt.Fprintln(os.Stderr, "decode response:", err)
			os.Exit(1)
		}
		fmt.Printf("resolved: %+v (%s)\n", loc, sky.PServerStatus(loc))
	}

	if out, err := sky.Close(s); err == nil && pstore != nil {
		if err := pstore.Save(bootstrap.DeviceID, out); err != nil {
			logf(session.LogError, fmt.Sprintf("persist session state: %v", err))
		}
	}
}

func credentialsFrom(b *config.Bootstrap) (session.Credentials, error) {
	key, err := hex.DecodeString(b.AESKeyHex)
	if err != nil || len(key) != session.AESKeySize {
		return session.Credentials{}, fmt.Errorf("aes_key_hex must be %d hex bytes", session.AESKeySize)
	}
	var aesKey [session.AESKeySize]byte
	copy(aesKey[:], key)
	return session.Credentials{
		PartnerID:   b.PartnerID,
		AESKey:      aesKey,
		DeviceID:    []byte(b.DeviceID),
		SKU:         b.SKU,
		CountryCode: b.CountryCode,
	}, nil
}

func cryptoRand(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

type sampleAP struct {
	mac       [beacon.MACSize]byte
	freq      uint32
	rssi      int16
	connected bool
}

// sampleScan synthesizes a small Wi-Fi scan, standing in for a real
// device's radio driver output.
func sampleScan() []sampleAP {
	return []sampleAP{
		{mac: [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, freq: 2437, rssi: -55, connected: true},
		{mac: [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x56}, freq: 2442, rssi: -70, connected: false},
	}
}
