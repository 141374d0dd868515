// Package discovery provides mDNS advertisement and browsing of channel
// gateway endpoints.
//
// A gateway is a process that serves remote channels over some
// transport. Gateways advertise themselves as `_sigio-gw._tcp` services
// with TXT records describing the protocol they speak and how many
// channels they serve; clients browse for gateways on the local network
// before connecting a provider to one.
package discovery
