package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"easypos/internal/apierror"
	"easypos/internal/dto"
	"easypos/internal/infra"
	"easypos/internal/ledger"
	"easypos/internal/model"
	"easypos/internal/repository"
)

// ClosureRenderer produces the human-readable export artifact. Output must
// be deterministic for a given input so hashing is meaningful.
type ClosureRenderer interface {
	Render(data dto.ClosureRenderData) ([]byte, error)
}

// ArtifactStore persists rendered artifacts behind opaque location refs.
type ArtifactStore interface {
	Save(name string, data []byte) (string, error)
	Read(location string) ([]byte, error)
}

// AlertDispatcher enqueues the supervisor notification for alert-tier
// closures. Satisfied by worker.Dispatcher.
type AlertDispatcher interface {
	EnqueueClosureAlert(ctx context.Context, payload interface{}) error
}

// ClosureService generates, serves and verifies the tamper-evident closure
// documents. Generation is a strict create-if-absent keyed by the session's
// current closure cycle: retries and repeated calls return the original
// document, never a regenerated one.
type ClosureService interface {
	Generate(ctx context.Context, sessionID, requestingUserID uuid.UUID) (*dto.ClosureDocumentResponse, error)
	Fetch(ctx context.Context, sessionID uuid.UUID) (*dto.ClosureDocumentResponse, error)
	// Download returns the artifact bytes and bumps the download counter
	// atomically.
	Download(ctx context.Context, sessionID uuid.UUID) ([]byte, *dto.ClosureDocumentResponse, error)
	// Verify re-hashes the stored artifact and compares it against the
	// recorded digest — the tamper-evidence check.
	Verify(ctx context.Context, sessionID uuid.UUID) (*dto.VerifyDocumentResponse, error)
}

type closureService struct {
	sessions   repository.SessionRepository
	closures   repository.ClosureRepository
	registers  repository.RegisterRepository
	directory  repository.EstablishmentDirectory
	users      repository.UserRepository
	renderer   ClosureRenderer
	artifacts  ArtifactStore
	dispatcher AlertDispatcher
}

func NewClosureService(
	sessions repository.SessionRepository,
	closures repository.ClosureRepository,
	registers repository.RegisterRepository,
	directory repository.EstablishmentDirectory,
	users repository.UserRepository,
	renderer ClosureRenderer,
	artifacts ArtifactStore,
	dispatcher AlertDispatcher,
) ClosureService {
	return &closureService{
		sessions:   sessions,
		closures:   closures,
		registers:  registers,
		directory:  directory,
		users:      users,
		renderer:   renderer,
		artifacts:  artifacts,
		dispatcher: dispatcher,
	}
}

// ── Generate ──────────────────────────────────────────────────────────────────

func (s *closureService) Generate(ctx context.Context, sessionID, requestingUserID uuid.UUID) (*dto.ClosureDocumentResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apierror.New(apierror.KindSessionNotFound, "session %s not found", sessionID)
	}
	if session.Status != model.SessionClosed {
		return nil, apierror.StateFault(apierror.KindSessionMustBeClosed, model.SessionClosed, session.Status)
	}

	// Idempotency: one document per closure cycle. Repeated and retried
	// calls get the original back — same number, same hash, same artifact.
	if existing, err := s.closures.FindBySessionAndSeq(ctx, sessionID, session.ClosureSeq); err != nil {
		return nil, err
	} else if existing != nil {
		return buildClosureResponse(existing), nil
	}

	register, err := s.registers.FindByID(ctx, session.CashRegisterID)
	if err != nil {
		return nil, apierror.New(apierror.KindRegisterNotFound, "cash register %s not found", session.CashRegisterID)
	}
	establishment, err := s.directory.FindByID(ctx, register.EstablishmentID)
	if err != nil {
		return nil, apierror.New(apierror.KindCollaboratorUnavailable, "establishment directory lookup failed: %v", err)
	}

	operatorName := session.OperatorID.String()
	if operator, err := s.users.FindByID(ctx, session.OperatorID); err == nil {
		operatorName = operator.Name
	}

	// Recompute the summary from the ledger and cross-check against the
	// figures persisted at close time. Disagreement means the ledger or
	// the session row changed after closing — an integrity alarm, not
	// something to overwrite.
	summary := ledger.Summarize(session.OpeningAmount, session.Transactions, *session.CountedAmount)
	if !summary.ExpectedCash.Equal(*session.ExpectedAmount) || !summary.Difference.Equal(*session.Difference) {
		log.Error().
			Str("session_id", sessionID.String()).
			Str("stored_expected", session.ExpectedAmount.StringFixed(2)).
			Str("recomputed_expected", summary.ExpectedCash.StringFixed(2)).
			Str("stored_difference", session.Difference.StringFixed(2)).
			Str("recomputed_difference", summary.Difference.StringFixed(2)).
			Msg("closure integrity fault: ledger disagrees with stored closure figures")
		return nil, apierror.New(apierror.KindLedgerIntegrity,
			"recomputed summary disagrees with figures stored at close time for session %s", sessionID)
	}

	classification := ledger.ClassNormal
	if session.Classification != nil {
		classification = *session.Classification
	}

	// Only the current cycle's tally belongs on this document; a reopened
	// session keeps its earlier count lines under their own closure_seq.
	countLines := make([]dto.CountLineResponse, 0, len(session.Counts))
	countsTotal := decimal.Zero
	for _, c := range session.Counts {
		if c.ClosureSeq != session.ClosureSeq {
			continue
		}
		countLines = append(countLines, dto.CountLineResponse{Denomination: c.Denomination, Quantity: c.Quantity, Total: c.Total})
		countsTotal = countsTotal.Add(c.Total)
	}

	data := dto.ClosureRenderData{
		Establishment: dto.EstablishmentInfo{
			ID:    establishment.ID.String(),
			Name:  establishment.Name,
			TaxID: establishment.TaxID,
		},
		SessionID:      session.ID.String(),
		ClosureSeq:     session.ClosureSeq,
		RegisterName:   register.Name,
		OperatorName:   operatorName,
		OpenedAt:       session.OpenedAt,
		ClosedAt:       *session.ClosedAt,
		Summary:        summary,
		Classification: classification,
		Counts:         countLines,
		CountsTotal:    countsTotal,
	}
	if establishment.Address != nil {
		data.Establishment.Address = *establishment.Address
	}
	if establishment.LogoRef != nil {
		data.Establishment.LogoRef = *establishment.LogoRef
	}
	if session.Notes != nil {
		data.Notes = *session.Notes
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("closure_seq", session.ClosureSeq).
		Msg("closure document generation started")

	// Number assignment, render, artifact save and the document insert all
	// commit or roll back together: a failure at any step leaves no
	// partial document row, and the idempotency probe above makes the
	// whole operation retry-safe.
	doc, err := s.closures.CreateWithNumber(ctx, establishment.ID, func(number int64) (*model.ClosureDocument, error) {
		data.DocumentNumber = number

		artifact, err := s.renderer.Render(data)
		if err != nil {
			return nil, apierror.New(apierror.KindCollaboratorUnavailable, "artifact renderer failed: %v", err)
		}

		name := fmt.Sprintf("closure_%s_%06d.pdf", establishment.ID, number)
		location, err := s.artifacts.Save(name, artifact)
		if err != nil {
			return nil, apierror.New(apierror.KindCollaboratorUnavailable, "artifact store failed: %v", err)
		}

		metadata, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}

		return &model.ClosureDocument{
			CashSessionID:    session.ID,
			ClosureSeq:       session.ClosureSeq,
			EstablishmentID:  establishment.ID,
			DocumentNumber:   number,
			GeneratedBy:      requestingUserID,
			GeneratedAt:      time.Now(),
			ArtifactLocation: location,
			Hash:             infra.DigestHex(artifact),
			Metadata:         string(metadata),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("document_id", doc.ID.String()).
		Int64("document_number", doc.DocumentNumber).
		Str("hash", doc.Hash).
		Msg("closure document generated")

	if classification == ledger.ClassAlert && s.dispatcher != nil {
		payload := map[string]interface{}{
			"document_id":        doc.ID.String(),
			"session_id":         session.ID.String(),
			"document_number":    doc.DocumentNumber,
			"difference":         session.Difference.StringFixed(2),
			"difference_percent": session.DifferencePercent.StringFixed(2),
			"artifact_location":  doc.ArtifactLocation,
		}
		if err := s.dispatcher.EnqueueClosureAlert(ctx, payload); err != nil {
			// Alerting is best-effort; the document itself is committed
			log.Error().Err(err).Str("document_id", doc.ID.String()).Msg("failed to enqueue closure alert")
		}
	}

	return buildClosureResponse(doc), nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *closureService) Fetch(ctx context.Context, sessionID uuid.UUID) (*dto.ClosureDocumentResponse, error) {
	doc, err := s.closures.FindLatestBySession(ctx, sessionID)
	if err != nil {
		return nil, apierror.New(apierror.KindDocumentNotFound, "no closure document for session %s", sessionID)
	}
	return buildClosureResponse(doc), nil
}

func (s *closureService) Download(ctx context.Context, sessionID uuid.UUID) ([]byte, *dto.ClosureDocumentResponse, error) {
	doc, err := s.closures.FindLatestBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, apierror.New(apierror.KindDocumentNotFound, "no closure document for session %s", sessionID)
	}
	data, err := s.artifacts.Read(doc.ArtifactLocation)
	if err != nil {
		return nil, nil, apierror.New(apierror.KindCollaboratorUnavailable, "artifact store failed: %v", err)
	}
	if err := s.closures.IncrementDownloadCount(ctx, doc.ID); err != nil {
		log.Error().Err(err).Str("document_id", doc.ID.String()).Msg("failed to bump download count")
	} else {
		doc.DownloadCount++
	}
	return data, buildClosureResponse(doc), nil
}

func (s *closureService) Verify(ctx context.Context, sessionID uuid.UUID) (*dto.VerifyDocumentResponse, error) {
	doc, err := s.closures.FindLatestBySession(ctx, sessionID)
	if err != nil {
		return nil, apierror.New(apierror.KindDocumentNotFound, "no closure document for session %s", sessionID)
	}
	data, err := s.artifacts.Read(doc.ArtifactLocation)
	if err != nil {
		return nil, apierror.New(apierror.KindCollaboratorUnavailable, "artifact store failed: %v", err)
	}
	computed := infra.DigestHex(data)
	valid := computed == doc.Hash
	if !valid {
		log.Error().
			Str("document_id", doc.ID.String()).
			Str("stored_hash", doc.Hash).
			Str("computed_hash", computed).
			Msg("closure artifact hash mismatch")
	}
	return &dto.VerifyDocumentResponse{
		DocumentID:   doc.ID.String(),
		StoredHash:   doc.Hash,
		ComputedHash: computed,
		Valid:        valid,
	}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func buildClosureResponse(doc *model.ClosureDocument) *dto.ClosureDocumentResponse {
	return &dto.ClosureDocumentResponse{
		ID:               doc.ID.String(),
		CashSessionID:    doc.CashSessionID.String(),
		DocumentNumber:   doc.DocumentNumber,
		GeneratedBy:      doc.GeneratedBy.String(),
		GeneratedAt:      doc.GeneratedAt.UTC().Format(time.RFC3339),
		ArtifactLocation: doc.ArtifactLocation,
		Hash:             doc.Hash,
		DownloadCount:    doc.DownloadCount,
	}
}
