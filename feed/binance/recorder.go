// Package binance records Binance USD-M futures mark prices into the
// price store, one snapshot per stream message.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrader/journal"
)

// DefaultURL is the combined stream of all symbols' mark prices.
const DefaultURL = "wss://fstream.binance.com/stream?streams=!markPrice@arr"

const defaultHandshakeTimeout = 15 * time.Second

// Store receives snapshots. journal.SQLite implements it.
type Store interface {
	AppendSnapshot(ctx context.Context, quotes []journal.Quote) (int64, error)
}

// Recorder appends every mark price message from the stream to Store.
// There is no reconnect: a read error ends Run.
type Recorder struct {
	URL   string
	Store Store

	// Symbols restricts recording to these symbols. Empty records all.
	Symbols []string

	// MaxSnapshots stops the recorder after that many snapshots. 0 means
	// until the context is canceled.
	MaxSnapshots int

	HandshakeTimeout time.Duration

	Logger *zerolog.Logger
}

type markPrice struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	EventTime int64  `json:"E"`
}

type envelope struct {
	Stream string      `json:"stream"`
	Data   []markPrice `json:"data"`
}

// Decode parses one combined stream message into quotes, in delivery
// order. A non-nil filter keeps only the symbols it contains.
func Decode(msg []byte, filter map[string]bool) ([]journal.Quote, error) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("binance: decode: %w", err)
	}

	out := make([]journal.Quote, 0, len(env.Data))
	for _, mp := range env.Data {
		if mp.Symbol == "" {
			continue
		}
		if filter != nil && !filter[mp.Symbol] {
			continue
		}
		p, err := strconv.ParseFloat(mp.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("binance: %s price %q: %w", mp.Symbol, mp.Price, err)
		}
		out = append(out, journal.Quote{Symbol: mp.Symbol, Price: p})
	}
	return out, nil
}

func (r *Recorder) validate() error {
	if r.URL == "" {
		return fmt.Errorf("binance: URL is required")
	}
	if r.Store == nil {
		return fmt.Errorf("binance: Store is required")
	}
	if r.MaxSnapshots < 0 {
		return fmt.Errorf("binance: max snapshots must not be negative")
	}
	return nil
}

// Run records until ctx is canceled, MaxSnapshots is reached or the stream
// fails. It returns the number of snapshots stored. Cancellation is a clean
// stop and returns a nil error.
func (r *Recorder) Run(ctx context.Context) (int, error) {
	if err := r.validate(); err != nil {
		return 0, err
	}
	log := zerolog.Nop()
	if r.Logger != nil {
		log = *r.Logger
	}

	var filter map[string]bool
	if len(r.Symbols) > 0 {
		filter = make(map[string]bool, len(r.Symbols))
		for _, s := range r.Symbols {
			filter[s] = true
		}
	}

	timeout := r.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	conn, _, err := dialer.DialContext(ctx, r.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("binance: connect: %w", err)
	}
	defer conn.Close()
	log.Info().Str("url", r.URL).Msg("recording mark prices")

	// unblock ReadMessage on cancellation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	n := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Int("snapshots", n).Msg("recording stopped")
				return n, nil
			}
			return n, fmt.Errorf("binance: read: %w", err)
		}

		quotes, err := Decode(msg, filter)
		if err != nil {
			log.Warn().Err(err).Msg("message skipped")
			continue
		}
		if len(quotes) == 0 {
			continue
		}

		seq, err := r.Store.AppendSnapshot(ctx, quotes)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return n, nil
			}
			return n, fmt.Errorf("binance: store snapshot: %w", err)
		}
		n++
		log.Debug().Int64("seq", seq).Int("symbols", len(quotes)).Msg("snapshot stored")

		if r.MaxSnapshots > 0 && n >= r.MaxSnapshots {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			log.Info().Int("snapshots", n).Msg("recording complete")
			return n, nil
		}
	}
}
