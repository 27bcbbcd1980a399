package model

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewAnalysisID derives a 12 character id from a digest of the current UTC
// timestamp. Best-effort unique, time-seeded; not a security token.
func NewAnalysisID() string {
	return analysisIDAt(time.Now().UTC())
}

func analysisIDAt(ts time.Time) string {
	sum := md5.Sum([]byte(ts.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:12]
}

// NewSessionID returns an upload session id such as SES-1A2B3C4D.
func NewSessionID() string {
	return "SES-" + shortHex(8)
}

// NewReportID returns a history report id such as REP-0123456789.
func NewReportID() string {
	return "REP-" + shortHex(10)
}

func shortHex(n int) string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:]))[:n]
}
