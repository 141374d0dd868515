package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       120 * time.Second,
	}
}

// Advertiser announces gateway services over mDNS using zeroconf.
type Advertiser struct {
	config AdvertiserConfig

	mu      sync.Mutex
	servers map[string]*zeroconf.Server // keyed by gateway name
}

// NewAdvertiser creates a new mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{
		config:  config,
		servers: make(map[string]*zeroconf.Server),
	}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *Advertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising a gateway. Re-advertising the same name
// replaces the previous registration.
func (a *Advertiser) Advertise(info *GatewayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if server, exists := a.servers[info.Name]; exists {
		server.Shutdown()
		delete(a.servers, info.Name)
	}

	instanceName := fmt.Sprintf("SIGIO-%s", info.Name)
	if len(instanceName) > MaxInstanceNameLen {
		instanceName = instanceName[:MaxInstanceNameLen]
	}

	txtStrings := TXTRecordsToStrings(EncodeGatewayTXT(info))

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		instanceName,
		ServiceTypeGateway,
		Domain,
		port,
		txtStrings,
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register gateway service: %w", err)
	}

	a.servers[info.Name] = server
	return nil
}

// Update replaces the TXT records of an active advertisement.
func (a *Advertiser) Update(name string, info *GatewayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[name]
	if !exists {
		return ErrNotFound
	}

	server.SetText(TXTRecordsToStrings(EncodeGatewayTXT(info)))
	return nil
}

// Stop stops advertising the named gateway.
func (a *Advertiser) Stop(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[name]
	if !exists {
		return ErrNotFound
	}

	server.Shutdown()
	delete(a.servers, name)
	return nil
}

// StopAll stops all advertisements.
func (a *Advertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, server := range a.servers {
		server.Shutdown()
		delete(a.servers, name)
	}
}
