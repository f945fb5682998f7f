package livewatch

import (
	"context"
	"fmt"
	"strconv"

	lwerrors "github.com/jpalmerr/livewatch/internal/errors"
	"github.com/jpalmerr/livewatch/internal/poller"
	"github.com/jpalmerr/livewatch/internal/probe"
)

// ProbeResult is what a probe observed about a channel.
type ProbeResult = poller.ProbeResult

// ProbeFunc checks whether a channel is live. It replaces the built-in HTTP
// probe when passed to [WithProbe]. It is called concurrently from worker
// goroutines. A returned error fails the probe and the channel is retried at
// its current tier.
type ProbeFunc func(ctx context.Context, ch Channel) (ProbeResult, error)

// httpProber fetches a channel's URL and applies its detector.
type httpProber struct {
	client *probe.Client
	lookup func(id string) (Channel, bool)
}

func (p *httpProber) Probe(ctx context.Context, channelID string) (poller.ProbeResult, error) {
	ch, ok := p.lookup(channelID)
	if !ok {
		return poller.ProbeResult{}, lwerrors.NewInvalidChannelError("probe", channelID)
	}

	resp, err := p.client.Fetch(ctx, probe.Request{
		Method:  ch.method,
		URL:     ch.url,
		Headers: ch.headers,
		Timeout: ch.timeout,
	})
	if err != nil {
		return poller.ProbeResult{}, err
	}

	metadata := map[string]string{"http_status": strconv.Itoa(resp.StatusCode)}
	if resp.Truncated {
		metadata["truncated"] = "true"
	}

	detector := ch.detector
	if detector == nil {
		detector = DefaultDetector
	}

	switch detector(resp.Body, resp.StatusCode) {
	case Live:
		return poller.ProbeResult{IsLive: true, Metadata: metadata}, nil
	case Offline:
		return poller.ProbeResult{Metadata: metadata}, nil
	default:
		return poller.ProbeResult{Metadata: metadata}, fmt.Errorf("live state unknown (HTTP %d)", resp.StatusCode)
	}
}

// funcProber adapts a user [ProbeFunc] to the scheduler.
type funcProber struct {
	fn     ProbeFunc
	lookup func(id string) (Channel, bool)
}

func (p *funcProber) Probe(ctx context.Context, channelID string) (poller.ProbeResult, error) {
	ch, ok := p.lookup(channelID)
	if !ok {
		return poller.ProbeResult{}, lwerrors.NewInvalidChannelError("probe", channelID)
	}
	return p.fn(ctx, ch)
}
