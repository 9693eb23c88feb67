package telemetry

import (
	"net/http"

	"keyfade/middleware/jsonresp"
)

// Report é o corpo de GET /telemetry/abuse.
type Report struct {
	AbuseSnapshot
	SecretInventory InventorySnapshot `json:"secretInventory"`
}

// Handler serve o snapshot de abuso + inventário. inv pode ser nil.
func Handler(rec *Recorder, inv *Inventory) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := Report{AbuseSnapshot: rec.Snapshot(ParseLimits(r.URL.Query()))}
		if inv != nil {
			report.SecretInventory = inv.Snapshot()
		}
		jsonresp.Write(w, http.StatusOK, report)
	})
}
