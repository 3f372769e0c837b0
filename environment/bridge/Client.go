// Package bridge controls a SUMO simulation through a socket bridge
// process which owns the TraCI connection. A bridge implementation using
// the traci Python package ships in tools/sumo_bridge.py.
//
// Messages in both directions are msgpack maps framed by a 4-byte
// big-endian length. Each request is answered by exactly one response,
// in order, on the same connection:
//
//	request:  {"endpoint": <string>, "params": {<name>: <value>, ...}}
//	response: {"ok": true, <result fields>...}
//	          {"ok": false, "error": <string>}
//
// The endpoints, their params and their result fields are:
//
//	start            config, binary, tripinfo, routes  (none)
//	phase            tls                               phase (int)
//	set_phase        tls, index                        (none)
//	lane_vehicles    lane                              vehicles ([]string)
//	vehicle_position id                                position (float)
//	vehicle_speed    id                                speed (float)
//	halting          lane                              halting (int)
//	step                                               (none)
//	stop                                               (none)
//
// start launches binary with the SUMO configuration file config, the
// route file routes and trip information written to tripinfo, and must
// be the first request on a connection. step advances the simulation by
// one simulation step. stop ends the simulation; the bridge then closes
// the connection.
package bridge

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Endpoints served by the bridge
const (
	Start           = "start"
	Phase           = "phase"
	SetPhase        = "set_phase"
	LaneVehicles    = "lane_vehicles"
	VehiclePosition = "vehicle_position"
	VehicleSpeed    = "vehicle_speed"
	Halting         = "halting"
	Step            = "step"
	Stop            = "stop"
)

// Params are the parameters of a request
type Params map[string]interface{}

// Request is a single request to the bridge
type Request struct {
	Endpoint string `msgpack:"endpoint"`
	Params   Params `msgpack:"params,omitempty"`
}

// envelope holds the fields common to every response
type envelope struct {
	OK    bool   `msgpack:"ok"`
	Error string `msgpack:"error"`
}

// RemoteError is an error reported by the bridge
type RemoteError struct {
	Op      string // Endpoint of the failed request
	Message string
}

// Error satisfies the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%v: bridge error: %v", e.Op, e.Message)
}

// Client sends requests to the bridge over a single connection. A
// Client is not safe for concurrent use.
type Client struct {
	conn io.ReadWriteCloser
}

// NewClient returns a Client communicating over conn
func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{conn: conn}
}

// Call sends a request to an endpoint and decodes the response into
// resp, which may be nil if only the status of the response matters.
// A response reporting failure is returned as a *RemoteError.
func (c *Client) Call(endpoint string, params Params,
	resp interface{}) error {
	msg, err := msgpack.Marshal(Request{Endpoint: endpoint, Params: params})
	if err != nil {
		return fmt.Errorf("%v: could not encode request: %w", endpoint, err)
	}
	if err := WriteFrame(c.conn, msg); err != nil {
		return fmt.Errorf("%v: %w", endpoint, err)
	}

	body, err := ReadFrame(c.conn)
	if err != nil {
		return fmt.Errorf("%v: %w", endpoint, err)
	}

	var env envelope
	if err := msgpack.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%v: could not decode response: %w", endpoint, err)
	}
	if !env.OK {
		return &RemoteError{Op: endpoint, Message: env.Error}
	}

	if resp != nil {
		if err := msgpack.Unmarshal(body, resp); err != nil {
			return fmt.Errorf("%v: could not decode response: %w", endpoint,
				err)
		}
	}
	return nil
}

// Close closes the connection to the bridge
func (c *Client) Close() error {
	return c.conn.Close()
}
