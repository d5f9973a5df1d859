package profile

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog/log"
)

// ParseSnmprec reads snmprec-format profile data: one "oid|type|value" record
// per line, '#' comments allowed. Unparseable lines are skipped with a
// warning rather than failing the whole profile.
func ParseSnmprec(r io.Reader) (*Store, error) {
	store := NewStore()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		oid, datum, err := parseSnmprecLine(line)
		if err != nil {
			log.Warn().Int("line", lineNum).Err(err).Msg("skipping malformed profile record")
			continue
		}
		store.Insert(oid, datum)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	store.Sort()
	return store, nil
}

// LoadSnmprecFile parses a profile from disk.
func LoadSnmprecFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()
	return ParseSnmprec(f)
}

func parseSnmprecLine(line string) (string, Datum, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return "", Datum{}, fmt.Errorf("want oid|type|value, got %q", line)
	}

	oid := NormalizeOID(parts[0])
	if oid == "" {
		return "", Datum{}, fmt.Errorf("empty oid in %q", line)
	}

	typeTag := strings.ToLower(strings.TrimSpace(parts[1]))
	raw := parts[2]

	// snmpsim tags hex-encoded strings with a "x" suffix, e.g. "4x".
	hexEncoded := strings.HasSuffix(typeTag, "x")
	typeTag = strings.TrimSuffix(typeTag, "x")

	switch typeTag {
	case "2", "integer":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", Datum{}, fmt.Errorf("integer value %q: %w", raw, err)
		}
		return oid, Datum{Type: gosnmp.Integer, Value: int(n)}, nil
	case "4", "octetstring", "string":
		if hexEncoded {
			decoded, err := hex.DecodeString(raw)
			if err != nil {
				return "", Datum{}, fmt.Errorf("hex value %q: %w", raw, err)
			}
			return oid, Datum{Type: gosnmp.OctetString, Value: decoded}, nil
		}
		return oid, Datum{Type: gosnmp.OctetString, Value: []byte(raw)}, nil
	case "6", "objectidentifier", "oid":
		return oid, Datum{Type: gosnmp.ObjectIdentifier, Value: NormalizeOID(raw)}, nil
	case "65", "counter32", "counter":
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return "", Datum{}, fmt.Errorf("counter32 value %q: %w", raw, err)
		}
		return oid, Datum{Type: gosnmp.Counter32, Value: uint32(n)}, nil
	case "66", "gauge32", "gauge":
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return "", Datum{}, fmt.Errorf("gauge32 value %q: %w", raw, err)
		}
		return oid, Datum{Type: gosnmp.Gauge32, Value: int32(n)}, nil
	case "67", "timeticks":
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return "", Datum{}, fmt.Errorf("timeticks value %q: %w", raw, err)
		}
		return oid, Datum{Type: gosnmp.TimeTicks, Value: uint32(n)}, nil
	case "70", "counter64":
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return "", Datum{}, fmt.Errorf("counter64 value %q: %w", raw, err)
		}
		return oid, Datum{Type: gosnmp.Counter64, Value: n}, nil
	default:
		return "", Datum{}, fmt.Errorf("unsupported type tag %q", parts[1])
	}
}
