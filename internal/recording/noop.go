// internal/recording/noop.go
package recording

import "github.com/javajoker/paywallkit/internal/models"

// Noop discards every event. Used when no collector endpoint is configured.
type Noop struct{}

func (Noop) EnqueueTransaction(*models.Transaction)    {}
func (Noop) TrackRestoration(string, string)           {}
func (Noop) TrackEvent(string, map[string]interface{}) {}
