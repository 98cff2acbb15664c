package installer

import "github.com/dawkit/dawkit/internal/tasktracker"

// trackerListener adapts the orchestrator's Listener to the narrower
// tasktracker.Listener interface expected by multidownloader.Run, folding
// the tracker's aggregate progress into StageProgressed.
type trackerListener struct {
	l Listener
}

func (t trackerListener) SummaryChanged(tasktracker.Summary)      {}
func (t trackerListener) TotalProgressed(fraction float64)        { t.l.StageProgressed(fraction) }
func (t trackerListener) TaskStarted(id int, label string)        { t.l.TaskStarted(id, label) }
func (t trackerListener) TaskProgressed(id int, fraction float64) { t.l.TaskProgressed(id, fraction) }
func (t trackerListener) TaskFinished(id int)                     { t.l.TaskFinished(id) }
