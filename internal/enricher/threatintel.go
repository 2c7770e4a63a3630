package enricher

import (
	"net"
	"strings"

	"vigil/internal/domain"
)

// threatKeywords is the fixed, small vocabulary spec §4.2 calls for. Each
// keyword contributes its boost to threat_score if present in raw_event
// (case-insensitive).
var threatKeywords = map[string]float64{
	"union select":      8.0,
	"drop table":        8.0,
	"/etc/passwd":       7.0,
	"wget http":         5.0,
	"curl -o":           4.0,
	"powershell -enc":   7.0,
	"base64_decode":     5.0,
	"../../":            4.0,
	"cmd.exe /c":        5.0,
	"eval(":             4.0,
	"nmap":              3.0,
	"sqlmap":            8.0,
	"mimikatz":          9.0,
}

// ThreatIntel decorates an event with threat_score / threat_risk_level /
// threat_detected by probing the IOC table and scanning raw_event for
// keywords (spec §4.2).
type ThreatIntel struct {
	iocs *IOCTable
}

func NewThreatIntel(iocs *IOCTable) *ThreatIntel {
	return &ThreatIntel{iocs: iocs}
}

// Score computes threat_score = max(IP-score, keyword-boost), capped at
// 10.0, and returns the matched threat category label (the highest-scoring
// signal source) for ThreatCategory.
func (ti *ThreatIntel) Score(e *domain.Event) (score float64, category string) {
	ipScore, ipCategory := ti.ipScore(e)
	keywordScore, keywordCategory := keywordScore(e.RawEvent)

	if ipScore >= keywordScore {
		score, category = ipScore, ipCategory
	} else {
		score, category = keywordScore, keywordCategory
	}
	if score > 10.0 {
		score = 10.0
	}
	return score, category
}

func (ti *ThreatIntel) ipScore(e *domain.Event) (float64, string) {
	var best float64
	var category string
	for _, ip := range []string{e.SourceIP, e.DestinationIP} {
		if ip == "" || net.ParseIP(ip) == nil {
			continue
		}
		if s := ti.iocs.Lookup(ip); s > best {
			best = s
			category = "known-bad-ip"
		}
	}
	return best, category
}

func keywordScore(rawEvent string) (float64, string) {
	lower := strings.ToLower(rawEvent)
	var best float64
	var matched string
	for kw, boost := range threatKeywords {
		if strings.Contains(lower, kw) && boost > best {
			best = boost
			matched = kw
		}
	}
	if matched == "" {
		return 0, ""
	}
	return best, "keyword:" + matched
}
