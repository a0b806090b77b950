package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"easypos/internal/infra"
)

// ClosureAlertPayload mirrors what the closure service enqueues when a
// closure lands in the alert tier.
type ClosureAlertPayload struct {
	DocumentID        string `json:"document_id"`
	SessionID         string `json:"session_id"`
	DocumentNumber    int64  `json:"document_number"`
	Difference        string `json:"difference"`
	DifferencePercent string `json:"difference_percent"`
	ArtifactLocation  string `json:"artifact_location"`
}

// ClosureAlertWorker mails the supervisor when a closure crosses the alert
// threshold, attaching the reconciliation document.
type ClosureAlertWorker struct {
	mailer     *infra.Mailer
	artifacts  *infra.FileArtifactStore
	alertEmail string
}

func NewClosureAlertWorker(mailer *infra.Mailer, artifacts *infra.FileArtifactStore, alertEmail string) *ClosureAlertWorker {
	return &ClosureAlertWorker{mailer: mailer, artifacts: artifacts, alertEmail: alertEmail}
}

func (w *ClosureAlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p ClosureAlertPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("closure alert: unmarshal payload: %w", err)
	}
	if w.alertEmail == "" {
		log.Warn().Str("document_id", p.DocumentID).Msg("ALERT_EMAIL not configured, skipping closure alert")
		return nil
	}

	attachment, err := w.artifacts.Read(p.ArtifactLocation)
	if err != nil {
		// Mail still goes out without the attachment — the alert matters
		// more than the PDF
		log.Error().Err(err).Str("document_id", p.DocumentID).Msg("closure alert: artifact read failed")
		attachment = nil
	}

	subject := fmt.Sprintf("Cash closure alert — document #%06d", p.DocumentNumber)
	body := fmt.Sprintf(
		"A cash session closure exceeded the alert threshold.\n\n"+
			"Session:    %s\n"+
			"Document:   #%06d\n"+
			"Difference: %s (%s%%)\n\n"+
			"The reconciliation report is attached.\n",
		p.SessionID, p.DocumentNumber, p.Difference, p.DifferencePercent)

	filename := fmt.Sprintf("closure_%06d.pdf", p.DocumentNumber)
	if err := w.mailer.SendClosureAlert(w.alertEmail, subject, body, attachment, filename); err != nil {
		return fmt.Errorf("closure alert: send mail: %w", err)
	}

	log.Info().
		Str("document_id", p.DocumentID).
		Str("to", w.alertEmail).
		Msg("closure alert email sent")
	return nil
}
