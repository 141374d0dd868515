package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeGatewayTXT creates TXT records for gateway discovery.
func EncodeGatewayTXT(info *GatewayInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyName] = info.Name
	txt[TXTKeyProtocol] = info.Protocol
	txt[TXTKeyChannels] = strconv.Itoa(info.Channels)

	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}

	return txt
}

// DecodeGatewayTXT parses TXT records from gateway discovery.
func DecodeGatewayTXT(txt TXTRecordMap) (*GatewayInfo, error) {
	info := &GatewayInfo{}

	var ok bool
	info.Name, ok = txt[TXTKeyName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyName)
	}

	info.Protocol, ok = txt[TXTKeyProtocol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyProtocol)
	}

	chanStr, ok := txt[TXTKeyChannels]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyChannels)
	}
	chans, err := strconv.Atoi(chanStr)
	if err != nil || chans < 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, TXTKeyChannels, chanStr)
	}
	info.Channels = chans

	info.Version = txt[TXTKeyVersion]

	return info, nil
}

// TXTRecordsToStrings converts a TXT record map to "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	out := make([]string, 0, len(txt))
	for k, v := range txt {
		out = append(out, k+"="+v)
	}
	return out
}

// StringsToTXTRecords parses "key=value" strings into a TXT record map.
// Entries without '=' are ignored.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(strs))
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if !found {
			continue
		}
		txt[k] = v
	}
	return txt
}
