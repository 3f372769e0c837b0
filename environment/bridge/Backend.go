package bridge

import (
	"context"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"time"

	"github.com/samuelfneumann/traffiti/environment"
	"github.com/samuelfneumann/traffiti/routes"
)

// Backend starts SUMO simulations through the bridge
type Backend struct {
	Network string // Network of the bridge's socket, e.g. "unix" or "tcp"
	Address string

	// SumoHome is the SUMO installation directory. The simulator binary
	// is $SUMO_HOME/bin/sumo, or sumo-gui if GUI is true.
	SumoHome string
	GUI      bool

	ConfigFile string // SUMO configuration file
	RouteFile  string // Route file written with the demand of each session
	TripInfo   string // Trip information output file

	// RetryInterval is the time between attempts to connect to the
	// bridge
	RetryInterval time.Duration
}

// Binary returns the path of the SUMO binary the bridge should start
func (b Backend) Binary() string {
	name := "sumo"
	if b.GUI {
		name = "sumo-gui"
	}
	return filepath.Join(b.SumoHome, "bin", name)
}

// Validate returns an error describing whether the Backend is valid
func (b Backend) Validate() error {
	if b.SumoHome == "" {
		return fmt.Errorf("validate: please declare environment variable " +
			"'SUMO_HOME'")
	}
	if b.Network == "" || b.Address == "" {
		return fmt.Errorf("validate: no bridge address")
	}
	if b.ConfigFile == "" || b.RouteFile == "" {
		return fmt.Errorf("validate: no SUMO configuration or route file")
	}
	return nil
}

// Start writes the route file of the demand d, connects to the bridge
// and starts a new simulation. Connecting is retried until ctx is done.
func (b Backend) Start(ctx context.Context,
	d routes.Demand) (environment.Simulator, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := d.WriteFile(b.RouteFile); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	conn, err := b.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	return b.start(NewClient(conn))
}

// start sends the start request over an established connection
func (b Backend) start(client *Client) (*Session, error) {
	err := client.Call(Start, Params{
		"config":   b.ConfigFile,
		"binary":   b.Binary(),
		"tripinfo": b.TripInfo,
		"routes":   b.RouteFile,
	}, nil)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("start: %w", err)
	}

	return NewSession(client), nil
}

// dial connects to the bridge, retrying until ctx is done
func (b Backend) dial(ctx context.Context) (net.Conn, error) {
	interval := b.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, b.Network, b.Address)
		if err == nil {
			return conn, nil
		}

		log.Printf("failed to connect to bridge at %s: %v, retrying in %v",
			b.Address, err, interval)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

var _ environment.Backend = Backend{}
