package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/skillswap/swap-app/loadtest/client"
	"github.com/skillswap/swap-app/loadtest/stats"
)

// signalPayload is the fake SDP/ICE body used for relay traffic. The server
// treats these as opaque, so the content only needs to carry the send
// timestamp for latency measurement.
type signalPayload struct {
	Seq    int   `json:"seq"`
	SentNs int64 `json:"sent_ns"`
}

// runSignal implements the signaling relay load test. It connects pairs of
// users, joins each pair into its own room, and has one side send a stream of
// offer/answer/ICE-shaped messages while the other side measures end-to-end
// relay latency from a timestamp embedded in the opaque payload.
func runSignal(args []string) {
	fs := flag.NewFlagSet("signal", flag.ExitOnError)
	url := fs.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	pairs := fs.Int("pairs", 50, "Number of user pairs")
	rate := fs.Int("rate", 5, "Messages per second per sender")
	duration := fs.Duration("duration", 30*time.Second, "Test duration")
	tokenPrefix := fs.String("token-prefix", "load-", "Token prefix; token i is <prefix><i> and must be pre-seeded")
	fs.Parse(args)

	fmt.Printf("Signal test: %d pairs to %s (rate=%d msg/s, duration=%s)\n",
		*pairs, *url, *rate, *duration)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < *pairs; i++ {
		wg.Add(1)
		go func(pair int) {
			defer wg.Done()
			runPair(ctx, collector, *url, *tokenPrefix, pair, *rate, *duration)
		}(i)
	}
	wg.Wait()

	collector.Report()
}

// runPair drives one sender/receiver pair through a full signaling exchange.
// Message types rotate through the offer/answer/candidate shapes so the
// server's per-type relay paths all see traffic.
func runPair(ctx context.Context, collector *stats.Collector, url, tokenPrefix string, pair, rate int, duration time.Duration) {
	roomID := fmt.Sprintf("loadroom-%d", pair)

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sender, err := client.New(connCtx, url, fmt.Sprintf("%s%d", tokenPrefix, pair*2))
	if err != nil {
		collector.AddError()
		return
	}
	defer sender.Close()

	receiver, err := client.New(connCtx, url, fmt.Sprintf("%s%d", tokenPrefix, pair*2+1))
	if err != nil {
		collector.AddError()
		return
	}
	defer receiver.Close()

	if err := sender.WaitForConnected(connCtx); err != nil {
		collector.AddError()
		return
	}
	if err := receiver.WaitForConnected(connCtx); err != nil {
		collector.AddError()
		return
	}
	collector.AddConnect(sender.GetMetrics().ConnectLatency)
	collector.AddConnect(receiver.GetMetrics().ConnectLatency)

	// The receiver measures relay latency from the timestamp embedded in
	// each opaque payload.
	measure := func(raw json.RawMessage) {
		var msg struct {
			Offer     *signalPayload `json:"offer"`
			Answer    *signalPayload `json:"answer"`
			Candidate *signalPayload `json:"candidate"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		payload := msg.Offer
		if payload == nil {
			payload = msg.Answer
		}
		if payload == nil {
			payload = msg.Candidate
		}
		if payload == nil {
			return
		}
		collector.AddRelayLatency(time.Since(time.Unix(0, payload.SentNs)))
	}
	receiver.On(client.TypeVideoOffer, measure)
	receiver.On(client.TypeVideoAnswer, measure)
	receiver.On(client.TypeIceCandidate, measure)

	if err := sender.JoinRoom(roomID); err != nil {
		collector.AddError()
		return
	}
	if err := receiver.JoinRoom(roomID); err != nil {
		collector.AddError()
		return
	}

	// Give the join acks a moment to land before traffic starts.
	time.Sleep(200 * time.Millisecond)

	types := []string{client.TypeVideoOffer, client.TypeVideoAnswer, client.TypeIceCandidate}
	fields := map[string]string{
		client.TypeVideoOffer:   "offer",
		client.TypeVideoAnswer:  "answer",
		client.TypeIceCandidate: "candidate",
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			msgType := types[seq%len(types)]
			payload, _ := json.Marshal(signalPayload{Seq: seq, SentNs: time.Now().UnixNano()})
			msg := map[string]interface{}{
				"type":          msgType,
				"match_id":      roomID,
				fields[msgType]: json.RawMessage(payload),
			}
			if err := sender.Send(msg); err != nil {
				collector.AddError()
				return
			}
			seq++
		}
	}
}
