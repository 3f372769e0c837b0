package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/samuelfneumann/traffiti/routes"
	"github.com/vmihailenco/msgpack/v5"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	for _, msg := range [][]byte{[]byte("hello"), {}, []byte("world")} {
		if err := WriteFrame(&buf, msg); err != nil {
			t.Fatal(err)
		}
	}

	if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{0, 0, 0, 5}) {
		t.Errorf("writeframe: header %v, want big-endian length 5", got)
	}

	for _, want := range []string{"hello", "", "world"} {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("readframe: have(%q) want(%q)", got, want)
		}
	}

	if _, err := ReadFrame(&buf); err == nil {
		t.Error("readframe: expected error reading past the last frame")
	}
}

func TestReadFrameTruncated(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 10, 'a', 'b'})
	if _, err := ReadFrame(buf); err == nil {
		t.Error("readframe: expected error on truncated body")
	}
}

// serve answers requests on conn with the response returned by handle
// until the connection is closed. Every request received is sent on
// seen.
func serve(t *testing.T, conn net.Conn, seen chan<- Request,
	handle func(Request) map[string]interface{}) {
	t.Helper()
	go func() {
		defer conn.Close()
		for {
			body, err := ReadFrame(conn)
			if err != nil {
				return
			}

			var req Request
			if err := msgpack.Unmarshal(body, &req); err != nil {
				return
			}
			if seen != nil {
				seen <- req
			}

			out, err := msgpack.Marshal(handle(req))
			if err != nil {
				return
			}
			if err := WriteFrame(conn, out); err != nil {
				return
			}
		}
	}()
}

func TestSession(t *testing.T) {
	client, server := net.Pipe()
	seen := make(chan Request, 16)
	serve(t, server, seen, func(req Request) map[string]interface{} {
		switch req.Endpoint {
		case Phase:
			return map[string]interface{}{"ok": true, "phase": 2}
		case LaneVehicles:
			return map[string]interface{}{"ok": true,
				"vehicles": []string{"right_0", "right_3"}}
		case VehiclePosition:
			return map[string]interface{}{"ok": true, "position": 481.5}
		case VehicleSpeed:
			return map[string]interface{}{"ok": true, "speed": 3.25}
		case Halting:
			return map[string]interface{}{"ok": true, "halting": 4}
		default:
			return map[string]interface{}{"ok": true}
		}
	})

	s := NewSession(NewClient(client))

	phase, err := s.Phase("0")
	if err != nil || phase != 2 {
		t.Errorf("phase: have(%v, %v) want(2, nil)", phase, err)
	}
	if req := <-seen; req.Endpoint != Phase || req.Params["tls"] != "0" {
		t.Errorf("phase: unexpected request %+v", req)
	}

	if err := s.SetPhase("0", 2); err != nil {
		t.Error(err)
	}
	req := <-seen
	if req.Endpoint != SetPhase || req.Params["tls"] != "0" {
		t.Errorf("setphase: unexpected request %+v", req)
	}
	if index := fmt.Sprint(req.Params["index"]); index != "2" {
		t.Errorf("setphase: have(index=%v) want(index=2)", index)
	}

	ids, err := s.LaneVehicles("1i_0")
	if err != nil {
		t.Error(err)
	}
	if want := []string{"right_0", "right_3"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("lanevehicles: have(%v) want(%v)", ids, want)
	}
	<-seen

	pos, err := s.VehiclePosition("right_0")
	if err != nil || pos != 481.5 {
		t.Errorf("vehicleposition: have(%v, %v)", pos, err)
	}
	<-seen

	speed, err := s.VehicleSpeed("right_0")
	if err != nil || speed != 3.25 {
		t.Errorf("vehiclespeed: have(%v, %v)", speed, err)
	}
	<-seen

	halting, err := s.Halting("1i_0")
	if err != nil || halting != 4 {
		t.Errorf("halting: have(%v, %v)", halting, err)
	}
	<-seen

	if err := s.Step(); err != nil {
		t.Error(err)
	}
	if req := <-seen; req.Endpoint != Step {
		t.Errorf("step: unexpected endpoint %v", req.Endpoint)
	}

	if err := s.Close(); err != nil {
		t.Error(err)
	}
	if req := <-seen; req.Endpoint != Stop {
		t.Errorf("close: unexpected endpoint %v", req.Endpoint)
	}
}

// TestWireFormat decodes the raw frames written by a Session the way a
// bridge written in another language would see them
func TestWireFormat(t *testing.T) {
	client, server := net.Pipe()
	frames := make(chan map[string]interface{}, 2)
	go func() {
		defer server.Close()
		for i := 0; i < 2; i++ {
			body, err := ReadFrame(server)
			if err != nil {
				return
			}
			var msg map[string]interface{}
			if err := msgpack.Unmarshal(body, &msg); err != nil {
				return
			}
			frames <- msg

			out, _ := msgpack.Marshal(map[string]interface{}{"ok": true})
			if err := WriteFrame(server, out); err != nil {
				return
			}
		}
	}()
	defer client.Close()

	s := NewSession(NewClient(client))
	if err := s.SetPhase("0", 3); err != nil {
		t.Fatal(err)
	}
	msg := <-frames
	if msg["endpoint"] != "set_phase" {
		t.Errorf("setphase: have(endpoint=%v) want(endpoint=set_phase)",
			msg["endpoint"])
	}
	params, ok := msg["params"].(map[string]interface{})
	if !ok {
		t.Fatalf("setphase: have(params=%T) want(map)", msg["params"])
	}
	if params["tls"] != "0" || fmt.Sprint(params["index"]) != "3" {
		t.Errorf("setphase: have(params=%v) want(tls=0, index=3)", params)
	}

	if err := s.Step(); err != nil {
		t.Fatal(err)
	}
	msg = <-frames
	if msg["endpoint"] != "step" {
		t.Errorf("step: have(endpoint=%v) want(endpoint=step)",
			msg["endpoint"])
	}
	if _, ok := msg["params"]; ok {
		t.Errorf("step: have(params=%v) want no params", msg["params"])
	}
}

func TestRemoteError(t *testing.T) {
	client, server := net.Pipe()
	serve(t, server, nil, func(Request) map[string]interface{} {
		return map[string]interface{}{"ok": false, "error": "unknown lane"}
	})
	defer client.Close()

	s := NewSession(NewClient(client))
	_, err := s.Halting("9i_0")

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("halting: expected *RemoteError, have(%v)", err)
	}
	if remote.Op != Halting || remote.Message != "unknown lane" {
		t.Errorf("halting: unexpected remote error %+v", remote)
	}
}

func TestBackendStart(t *testing.T) {
	dir := t.TempDir()
	b := Backend{
		Network:    "unix",
		Address:    filepath.Join(dir, "bridge.sock"),
		SumoHome:   "/opt/sumo",
		GUI:        true,
		ConfigFile: "data/cross.sumocfg",
		RouteFile:  filepath.Join(dir, "data", "cross.rou.xml"),
		TripInfo:   "tripinfo.xml",
	}

	if got := b.Binary(); got != "/opt/sumo/bin/sumo-gui" {
		t.Errorf("binary: have(%v)", got)
	}

	ln, err := net.Listen(b.Network, b.Address)
	if err != nil {
		t.Skipf("cannot listen on unix socket: %v", err)
	}
	defer ln.Close()

	seen := make(chan Request, 4)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		serve(t, conn, seen, func(Request) map[string]interface{} {
			return map[string]interface{}{"ok": true}
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sim, err := b.Start(ctx, routes.Generate(routes.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	req := <-seen
	if req.Endpoint != Start {
		t.Fatalf("start: unexpected endpoint %v", req.Endpoint)
	}
	if req.Params["binary"] != "/opt/sumo/bin/sumo-gui" ||
		req.Params["config"] != b.ConfigFile ||
		req.Params["routes"] != b.RouteFile {
		t.Errorf("start: unexpected params %v", req.Params)
	}
}

func TestBackendDialCancelled(t *testing.T) {
	dir := t.TempDir()
	b := Backend{
		Network:       "unix",
		Address:       filepath.Join(dir, "missing.sock"),
		SumoHome:      "/opt/sumo",
		ConfigFile:    "data/cross.sumocfg",
		RouteFile:     filepath.Join(dir, "cross.rou.xml"),
		RetryInterval: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		50*time.Millisecond)
	defer cancel()

	if _, err := b.Start(ctx, routes.Generate(routes.DefaultConfig())); err == nil {
		t.Error("start: expected error when the bridge is unreachable")
	} else if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("start: expected deadline exceeded, have(%v)", err)
	}
}

func TestBackendValidate(t *testing.T) {
	b := Backend{Network: "unix", Address: "a", ConfigFile: "c",
		RouteFile: "r"}
	if err := b.Validate(); err == nil {
		t.Error("validate: expected error without SUMO_HOME")
	}
	b.SumoHome = "/opt/sumo"
	if err := b.Validate(); err != nil {
		t.Error(err)
	}
}
