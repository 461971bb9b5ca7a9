package search

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(vector []float32)
	AfterVectorQuery(ids []string)
	VerbatimHit(result *Result)
	Skipped(id string, err error)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32) {}
func (n *noopMonitor) AfterVectorQuery(_ []string)     {}
func (n *noopMonitor) VerbatimHit(_ *Result)           {}
func (n *noopMonitor) Skipped(_ string, _ error)       {}
func (n *noopMonitor) Finish(_ []*Result)              {}
