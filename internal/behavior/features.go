package behavior

import "strings"

// MaxBehaviorScore caps the heuristic behavior score.
const MaxBehaviorScore = 100

// autorunMarkers identify registry locations used for persistence.
var autorunMarkers = []string{
	`\currentversion\run`,
	`\currentversion\policies\explorer\run`,
	`\winlogon\shell`,
	`\winlogon\userinit`,
	`\image file execution options`,
	`\currentcontrolset\services\`,
}

// IsAutorunKey reports whether a registry key path lies under a known autorun location.
func IsAutorunKey(key string) bool {
	lower := strings.ToLower(key)
	for _, m := range autorunMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Features is the fixed event-count schema derived from a behavior report.
// The zero value represents "no dynamic data".
type Features struct {
	Present bool `json:"present"`

	BehaviorScore int    `json:"behavior_score"`
	RiskLevel     string `json:"risk_level"`

	TCPConnections   int `json:"tcp_connections_count"`
	DNSRequests      int `json:"dns_requests_count"`
	HTTPRequests     int `json:"http_requests_count"`
	KeysCreated      int `json:"registry_keys_created"`
	ValuesSet        int `json:"registry_values_set"`
	KeysDeleted      int `json:"registry_keys_deleted"`
	FilesCreated     int `json:"files_created_count"`
	FilesDeleted     int `json:"files_deleted_count"`
	FilesModified    int `json:"files_modified_count"`
	ProcessesCreated int `json:"processes_created_count"`
	LibrariesLoaded  int `json:"libraries_loaded_count"`

	// PersistenceKeys lists created registry keys under autorun locations.
	PersistenceKeys []string `json:"persistence_keys,omitempty"`
}

// Absent returns the features used when no behavior report is available.
func Absent() Features {
	return Features{RiskLevel: RiskLevel(0)}
}

// PersistenceDetected reports whether an autorun registry key was created.
func (f Features) PersistenceDetected() bool {
	return len(f.PersistenceKeys) > 0
}

// Normalize converts a report into Features. A nil report is treated as absent.
func Normalize(r *Report) Features {
	if r == nil {
		return Absent()
	}

	f := Features{
		Present:          true,
		TCPConnections:   len(r.Network.TCPConnections),
		DNSRequests:      len(r.Network.DNSRequests),
		HTTPRequests:     len(r.Network.HTTPRequests),
		KeysCreated:      len(r.Registry.KeysCreated),
		ValuesSet:        len(r.Registry.ValuesSet),
		KeysDeleted:      len(r.Registry.KeysDeleted),
		FilesCreated:     len(r.Filesystem.FilesCreated),
		FilesDeleted:     len(r.Filesystem.FilesDeleted),
		FilesModified:    len(r.Filesystem.FilesModified),
		ProcessesCreated: len(r.Process.ProcessesCreated),
		LibrariesLoaded:  len(r.Process.LibrariesLoaded),
	}
	for _, key := range r.Registry.KeysCreated {
		if IsAutorunKey(key) {
			f.PersistenceKeys = append(f.PersistenceKeys, key)
		}
	}
	f.BehaviorScore = Score(r)
	f.RiskLevel = RiskLevel(f.BehaviorScore)
	return f
}

// Score computes the heuristic behavior score in [0, MaxBehaviorScore].
func Score(r *Report) int {
	if r == nil {
		return 0
	}
	score := 0

	score += 2 * len(r.Network.TCPConnections)
	score += 3 * len(r.Network.HTTPRequests)
	for _, req := range r.Network.HTTPRequests {
		if strings.Contains(strings.ToLower(req.URL), "malicious") {
			score += 10
		}
	}

	score += len(r.Registry.KeysCreated)
	score += 2 * len(r.Registry.ValuesSet)
	for _, key := range r.Registry.KeysCreated {
		if IsAutorunKey(key) {
			score += 15
		}
	}

	score += len(r.Filesystem.FilesCreated)
	score += 3 * len(r.Filesystem.FilesDeleted)
	score += 2 * len(r.Filesystem.FilesModified)

	for _, p := range r.Process.ProcessesCreated {
		name := strings.ToLower(p.Name)
		if strings.Contains(name, "cmd.exe") {
			score += 5
		}
		if strings.Contains(name, "powershell") {
			score += 7
		}
	}

	if score > MaxBehaviorScore {
		score = MaxBehaviorScore
	}
	return score
}

// RiskLevel buckets a behavior score.
func RiskLevel(score int) string {
	switch {
	case score >= 70:
		return "HIGH"
	case score >= 40:
		return "MEDIUM"
	case score >= 20:
		return "LOW"
	default:
		return "MINIMAL"
	}
}
