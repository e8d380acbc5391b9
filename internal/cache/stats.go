package cache

// NamespaceStats summarizes the entries of one namespace.
type NamespaceStats struct {
	Files     int   `json:"files"`
	SizeBytes int64 `json:"size_bytes"`
	Expired   int   `json:"expired"`
}

// Stats is a read-only snapshot of the store's contents and lookup counters.
type Stats struct {
	TotalFiles     int                       `json:"total_files"`
	TotalSizeBytes int64                     `json:"total_size_bytes"`
	ExpiredFiles   int                       `json:"expired_files"`
	Hits           int64                     `json:"hits"`
	Misses         int64                     `json:"misses"`
	ByNamespace    map[string]NamespaceStats `json:"by_namespace"`
}

// HitRate is the fraction of Get calls since startup that found a fresh entry.
// It is zero before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats scans every namespace and reports file counts, sizes and how many
// entries are expired. Expired entries are counted, never removed.
func (s *Store) Stats() Stats {
	stats := Stats{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		ByNamespace: make(map[string]NamespaceStats),
	}

	namespaces, err := s.Namespaces()
	if err != nil {
		s.logger.Warn("failed to collect cache stats", "error", err)
		return stats
	}

	for _, ns := range namespaces {
		entries, err := s.entries(ns)
		if err != nil {
			s.logger.Warn("failed to collect namespace stats", "namespace", ns, "error", err)
			continue
		}

		var nsStats NamespaceStats
		for _, info := range entries {
			nsStats.Files++
			nsStats.SizeBytes += info.Size()
			if s.expired(ns, info) {
				nsStats.Expired++
			}
		}

		stats.ByNamespace[ns] = nsStats
		stats.TotalFiles += nsStats.Files
		stats.TotalSizeBytes += nsStats.SizeBytes
		stats.ExpiredFiles += nsStats.Expired
	}

	return stats
}
