package discovery

import "errors"

const (
	// ServiceTypeGateway is the mDNS service type for channel gateways.
	ServiceTypeGateway = "_sigio-gw._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default gateway port.
	DefaultPort = 5064

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	// TXTKeyVersion is the gateway protocol version.
	TXTKeyVersion = "ver"

	// TXTKeyName is the gateway's human-readable name.
	TXTKeyName = "name"

	// TXTKeyProtocol is the channel protocol the gateway serves.
	TXTKeyProtocol = "proto"

	// TXTKeyChannels is the number of channels the gateway serves.
	TXTKeyChannels = "chans"
)

// Discovery errors.
var (
	// ErrMissingRequired indicates a required TXT record is missing.
	ErrMissingRequired = errors.New("missing required TXT record")

	// ErrInvalidTXT indicates a TXT record could not be parsed.
	ErrInvalidTXT = errors.New("invalid TXT record")

	// ErrNotFound indicates the named advertisement does not exist.
	ErrNotFound = errors.New("advertisement not found")
)

// GatewayInfo describes a gateway for advertisement.
type GatewayInfo struct {
	// Name is the gateway's unique human-readable name.
	Name string

	// Protocol names the channel protocol the gateway serves.
	Protocol string

	// Version is the gateway protocol version string.
	Version string

	// Channels is the number of channels the gateway serves.
	Channels int

	// Port is the TCP port. Zero means DefaultPort.
	Port uint16
}

// GatewayService is a gateway found by browsing.
type GatewayService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the advertised hostname.
	Host string

	// Port is the gateway port.
	Port uint16

	// Addresses holds the resolved IPv4/IPv6 addresses as strings.
	Addresses []string

	// GatewayInfo is the decoded TXT payload.
	GatewayInfo
}
