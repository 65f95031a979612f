// Package discovery advertises a running relay on the local network and lets
// clients find one without configuration.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_omdraw._tcp"

// Relay is one advertised relay endpoint.
type Relay struct {
	Instance string
	Host     string
	Port     int
	Path     string
}

// URL is the websocket endpoint clients dial.
func (r Relay) URL() string {
	path := r.Path
	if path == "" {
		path = "/ws"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(r.Host, fmt.Sprint(r.Port)), path)
}

// Advertise publishes the relay listening on port. Shut the returned server
// down to withdraw the record.
func Advertise(instance string, port int, wsPath string) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(
		instance,
		ServiceType,
		"",
		"",
		port,
		nil,
		[]string{"path=" + wsPath},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse collects relays that answer within timeout. It returns early with
// whatever was found if ctx is cancelled.
func Browse(ctx context.Context, timeout time.Duration) ([]Relay, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	collected := make(chan []Relay, 1)

	go func() {
		var relays []Relay
		seen := make(map[string]bool)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					collected <- relays
					return
				}
				r, ok := fromEntry(e)
				if !ok || seen[r.URL()] {
					continue
				}
				seen[r.URL()] = true
				relays = append(relays, r)
			case <-ctx.Done():
				// Keep draining so Query never blocks on a full channel.
				for range entries {
				}
				collected <- relays
				return
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)

	relays := <-collected
	if err != nil {
		return relays, fmt.Errorf("mdns query failed: %w", err)
	}
	return relays, nil
}

func fromEntry(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Relay{}, false
	}
	r := Relay{
		Instance: strings.TrimSuffix(e.Name, "."+ServiceType+".local."),
		Host:     e.AddrV4.String(),
		Port:     e.Port,
	}
	for _, field := range e.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok {
			r.Path = path
		}
	}
	return r, true
}
