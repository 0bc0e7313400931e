package store

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Record coercion helpers. Neo4j returns integers as int64, floats as
// float64, and lists as []interface{}; absent or null properties come back
// as nil. These helpers absorb all of that into zero values.

func stringValue(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func int64Value(record *neo4j.Record, key string) int64 {
	v, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func floatValue(record *neo4j.Record, key string) float64 {
	v, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func stringSliceValue(record *neo4j.Record, key string) []string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func floatSliceValue(record *neo4j.Record, key string) []float32 {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []float32:
		return list
	case []float64:
		out := make([]float32, len(list))
		for i, f := range list {
			out[i] = float32(f)
		}
		return out
	case []interface{}:
		out := make([]float32, 0, len(list))
		for _, item := range list {
			switch f := item.(type) {
			case float64:
				out = append(out, float32(f))
			case float32:
				out = append(out, f)
			case int64:
				out = append(out, float32(f))
			}
		}
		return out
	}
	return nil
}
