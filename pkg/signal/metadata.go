package signal

// Metadata keys. Each signal fixes its key set at construction; values
// change, the key set never does.
const (
	MDConnected   = "connected"
	MDReadAccess  = "read_access"
	MDWriteAccess = "write_access"
	MDTimestamp   = "timestamp"
	MDStatus      = "status"
	MDSeverity    = "severity"
	MDPrecision   = "precision"
	MDUnits       = "units"
	MDLowerLimit  = "lower_ctrl_limit"
	MDUpperLimit  = "upper_ctrl_limit"
	MDEnumStrs    = "enum_strs"

	// Setpoint metadata keys, present only when the write target is a
	// distinct channel from the readback.
	MDSetpointStatus    = "setpoint_status"
	MDSetpointSeverity  = "setpoint_severity"
	MDSetpointPrecision = "setpoint_precision"
	MDSetpointTimestamp = "setpoint_timestamp"
)

// coreMetadataKeys are present on every signal.
var coreMetadataKeys = []string{
	MDConnected, MDReadAccess, MDWriteAccess, MDTimestamp,
	MDStatus, MDSeverity, MDPrecision,
}

// remoteMetadataKeys extend the core set with everything the readback
// channel reports.
var remoteMetadataKeys = append(append([]string(nil), coreMetadataKeys...),
	MDUnits, MDLowerLimit, MDUpperLimit, MDEnumStrs,
)

// setpointMetadataKeys are added when the write target differs from the
// readback channel.
var setpointMetadataKeys = []string{
	MDSetpointStatus, MDSetpointSeverity,
	MDSetpointPrecision, MDSetpointTimestamp,
}

// copyMetadata returns a shallow copy of md.
func copyMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

// subsetMetadata filters md down to the given keys.
func subsetMetadata(md map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := md[k]; ok {
			out[k] = v
		}
	}
	return out
}

// toFloat64 coerces numeric values for tolerance and limit math.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// dataType reports the describe() dtype for a value.
func dataType(v any) string {
	switch v.(type) {
	case nil:
		return "unknown"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "number"
	case string:
		return "string"
	case []float64, []float32, []int, []int64, []any, []byte:
		return "array"
	default:
		return "object"
	}
}

// dataShape reports the describe() shape for a value: empty for
// scalars, the length for one-dimensional arrays.
func dataShape(v any) []int {
	switch a := v.(type) {
	case []float64:
		return []int{len(a)}
	case []float32:
		return []int{len(a)}
	case []int:
		return []int{len(a)}
	case []int64:
		return []int{len(a)}
	case []byte:
		return []int{len(a)}
	case []any:
		return []int{len(a)}
	default:
		return []int{}
	}
}
