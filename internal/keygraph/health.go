package keygraph

import "math"

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Coverage      float64 `json:"coverage"`
	Separability  float64 `json:"separability"`
	Discriminance float64 `json:"discriminance"`
	Reachability  float64 `json:"reachability"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	Key             string           `json:"key"`
	Name            string           `json:"name"`
	HealthScore     float64          `json:"health_score"`
	HealthBreakdown HealthBreakdown  `json:"health_breakdown"`
	Structure       *StructureReport `json:"structure"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	TopN int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		TopN: 50,
	}
}

// Analyze runs the structural analysis and computes a composite health score
func Analyze(snap *KeySnapshot, config *AnalyzerConfig) *AnalysisReport {
	structure := ComputeStructure(snap, 0)

	nodes := float64(structure.TotalNodes)
	spaces := float64(structure.TotalSpaces)
	filters := float64(structure.TotalFilters)

	var coverage, separability, discriminance, reachability float64

	if nodes > 0 {
		coverage = clamp(1.0-math.Min(float64(len(structure.UnclassifiedIDs))/nodes, 0.2)*5.0, 0, 1)

		tied := 0
		for _, g := range structure.IndistinguishableGroups {
			tied += len(g)
		}
		separability = clamp(1.0-float64(tied)/nodes, 0, 1)
	}
	if spaces > 0 {
		weak := float64(len(structure.OrphanSpaces) + len(structure.UbiquitousSpaces))
		discriminance = clamp(1.0-math.Min(weak/spaces, 0.2)*5.0, 0, 1)
	}
	if filters > 0 {
		reachability = clamp(1.0-float64(len(structure.UnreachableFilters))/filters, 0, 1)
	}

	healthScore := 0.30*coverage + 0.25*separability + 0.25*discriminance + 0.20*reachability

	// lists are truncated for the report only after scoring
	structure.OrphanSpaces = truncate(structure.OrphanSpaces, config.TopN)
	structure.UbiquitousSpaces = truncate(structure.UbiquitousSpaces, config.TopN)
	structure.UnclassifiedIDs = truncate(structure.UnclassifiedIDs, config.TopN)
	structure.IndistinguishableGroups = truncate(structure.IndistinguishableGroups, config.TopN)

	return &AnalysisReport{
		Key:         snap.UUID,
		Name:        snap.Name,
		HealthScore: healthScore,
		HealthBreakdown: HealthBreakdown{
			Coverage:      coverage,
			Separability:  separability,
			Discriminance: discriminance,
			Reachability:  reachability,
		},
		Structure: structure,
	}
}

func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
