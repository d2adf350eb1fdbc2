package postgres

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestTypeNameFromOID(t *testing.T) {
	cases := []struct {
		oid  uint32
		want string
	}{
		{16, "BOOL"},
		{20, "INT8"},
		{23, "INT4"},
		{25, "TEXT"},
		{700, "FLOAT4"},
		{1043, "VARCHAR"},
		{1082, "DATE"},
		{1114, "TIMESTAMP"},
		{1184, "TIMESTAMPTZ"},
		{1700, "NUMERIC"},
		{2950, "UUID"},
		{3802, "JSONB"},
		{1007, "INT4[]"},
		{3807, "JSONB[]"},
		{99999, "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := typeNameFromOID(tc.oid); got != tc.want {
			t.Errorf("typeNameFromOID(%d) = %q, want %q", tc.oid, got, tc.want)
		}
	}
}

func TestMapCatalogType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"character varying", "VARCHAR"},
		{"character", "CHAR"},
		{"timestamp with time zone", "TIMESTAMPTZ"},
		{"timestamp without time zone", "TIMESTAMP"},
		{"time without time zone", "TIME"},
		{"double precision", "DOUBLE PRECISION"},
		{"integer", "INTEGER"},
		{"boolean", "BOOLEAN"},
		{"uuid", "UUID"},
		{"jsonb", "JSONB"},
		{"ARRAY", "ARRAY"},
		{"USER-DEFINED", "USER-DEFINED"},
	}
	for _, tc := range cases {
		if got := mapCatalogType(tc.in); got != tc.want {
			t.Errorf("mapCatalogType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeValue(t *testing.T) {
	numeric := pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}
	if got := normalizeValue(numeric); got != 12.5 {
		t.Errorf("valid numeric = %v, want 12.5", got)
	}
	if got := normalizeValue(pgtype.Numeric{}); got != nil {
		t.Errorf("null numeric = %v, want nil", got)
	}

	clock := pgtype.Time{Microseconds: (13*3600 + 4*60 + 5) * 1_000_000, Valid: true}
	if got := normalizeValue(clock); got != "13:04:05" {
		t.Errorf("time = %v, want 13:04:05", got)
	}

	id := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}
	if got := normalizeValue(id); got != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("uuid = %v, want 6ba7b810-9dad-11d1-80b4-00c04fd430c8", got)
	}

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if got := normalizeValue(ts); got != ts {
		t.Errorf("time.Time should pass through, got %v", got)
	}
	if got := normalizeValue(int64(7)); got != int64(7) {
		t.Errorf("int64 should pass through, got %v", got)
	}
	if got := normalizeValue(nil); got != nil {
		t.Errorf("nil should pass through, got %v", got)
	}
}

func TestFormatInterval(t *testing.T) {
	cases := []struct {
		iv   pgtype.Interval
		want string
	}{
		{pgtype.Interval{Months: 1, Days: 2, Microseconds: 3_500_000, Valid: true}, "1 mon 2 day 3.5 sec"},
		{pgtype.Interval{Days: 14, Valid: true}, "14 day"},
		{pgtype.Interval{Microseconds: 90_000_000, Valid: true}, "90 sec"},
		{pgtype.Interval{Valid: true}, "0 sec"},
	}
	for _, tc := range cases {
		if got := formatInterval(tc.iv); got != tc.want {
			t.Errorf("formatInterval(%+v) = %q, want %q", tc.iv, got, tc.want)
		}
	}
}
