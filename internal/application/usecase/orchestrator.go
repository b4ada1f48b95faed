package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/mollysec/molly/pkg/errors"

	"github.com/mollysec/molly/internal/domain/service"
	"go.uber.org/zap"
)

// Fixed user-facing replies. The wording is part of the product.
const (
	msgQuotaExceeded = "He excedido mi cuota de solicitudes. Por favor, intenta de nuevo más tarde."
	msgBlockedQuery  = "Lo siento, tu consulta fue bloqueada por las políticas de seguridad de la IA."
	msgModelDown     = "Lo siento, no pude comunicarme con la IA en este momento. Por favor, inténtalo de nuevo más tarde."
)

// QueryResult is the orchestrator's reply to one user turn. ScanID and
// PDFPath are set only when the turn triggered a scan.
type QueryResult struct {
	Response string
	ScanID   *uint
	PDFPath  string
}

// Orchestrator routes user turns. One model ask decides between a tool
// intent and prose; intents dispatch to the scan and report use-cases,
// prose goes back to the model with general-answer framing.
type Orchestrator struct {
	chats          *service.ChatRegistry
	scanUC         *ScanUseCase
	reportUC       *ReportUseCase
	defaultProfile string
	logger         *zap.Logger
}

// NewOrchestrator creates the dispatcher. defaultProfile names the
// scanner profile used when an intent does not carry one.
func NewOrchestrator(chats *service.ChatRegistry, scanUC *ScanUseCase, reportUC *ReportUseCase, defaultProfile string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		chats:          chats,
		scanUC:         scanUC,
		reportUC:       reportUC,
		defaultProfile: defaultProfile,
		logger:         logger,
	}
}

// HandleQuery processes one user turn for a chat. The chat stays
// locked for the whole call, so a scan pipeline and its model turns
// are never interleaved with another turn of the same chat.
func (o *Orchestrator) HandleQuery(ctx context.Context, chatID, userText string) (*QueryResult, error) {
	conv, release := o.chats.Acquire(chatID)
	defer release()

	o.logger.Info("Processing user query",
		zap.String("chat_id", chatID),
		zap.Int("length", len(userText)),
	)

	_, intent, err := conv.Ask(ctx,
		"Determinar si el usuario solicita una acción del sistema o una respuesta de conocimiento.",
		"Comando de usuario",
		userText,
		"Devolver JSON para acción o texto directo para pregunta de conocimiento. Mantener un historial conversacional.",
	)
	if err != nil {
		return o.modelFailure(err)
	}

	if intent == nil {
		return o.generalQuery(ctx, conv, userText)
	}

	o.logger.Info("Model requested an action",
		zap.String("chat_id", chatID),
		zap.String("action", intent.Action),
	)

	switch intent.Action {
	case service.ActionStartNetworkScan:
		return o.startNetworkScan(ctx, conv, intent, userText)
	case service.ActionGetScanResults:
		return o.getScanResults(ctx, conv, intent)
	case service.ActionGenerateDetailedHostReport:
		return o.generateDetailedHostReport(ctx, intent)
	default:
		return &QueryResult{Response: fmt.Sprintf("La IA sugirió una acción ('%s') que aún no puedo ejecutar. Por favor, intenta de nuevo o haz una pregunta diferente.", intent.Action)}, nil
	}
}

// generalQuery re-asks the model with general-answer framing when the
// dispatch turn produced no intent.
func (o *Orchestrator) generalQuery(ctx context.Context, conv *service.ConversationContext, userText string) (*QueryResult, error) {
	reply, _, err := conv.Ask(ctx,
		"Responder a la pregunta general del usuario.",
		"Consulta de usuario",
		userText,
		"Respuesta detallada y útil.",
	)
	if err != nil {
		return o.modelFailure(err)
	}
	return &QueryResult{Response: reply}, nil
}

// startNetworkScan validates the intent parameters, synthesizes a
// session name when the model gave none, and runs the scan pipeline.
func (o *Orchestrator) startNetworkScan(ctx context.Context, conv *service.ConversationContext, intent *service.Intent, userText string) (*QueryResult, error) {
	target := stringParam(intent.Parameters, "target")
	if target == "" {
		clarification, _, err := conv.Ask(ctx,
			"Solicitar al usuario que especifique el objetivo del escaneo, dada la falta de información en la solicitud original.",
			"Error de comando: target faltante",
			userText,
			"Respuesta amigable solicitando el IP o rango para el escaneo.",
		)
		if err != nil {
			return o.modelFailure(err)
		}
		return &QueryResult{Response: clarification}, nil
	}

	sessionName := stringParam(intent.Parameters, "session_name")
	if sessionName == "" {
		sessionName = SynthesizeSessionName(target, time.Now())
	}

	outcome, err := o.scanUC.Execute(ctx, conv, target, sessionName, o.defaultProfile)
	if err != nil {
		if apperrors.IsAlreadyExists(err) {
			return &QueryResult{Response: "No se pudo crear la sesión de escaneo."}, nil
		}
		var llmErr *service.LLMError
		if errors.As(err, &llmErr) {
			return o.modelFailure(err)
		}
		return nil, err
	}

	result := &QueryResult{Response: outcome.Response}
	if outcome.Failed {
		scanID := outcome.ScanID
		result.ScanID = &scanID
		return result, nil
	}

	// The scan is already completed; a report failure only costs the PDF.
	pdfPath, err := o.reportUC.GenerateNetworkSummary(ctx, outcome.ScanID)
	if err != nil {
		o.logger.Warn("Network summary PDF was not generated",
			zap.Uint("scan_id", outcome.ScanID),
			zap.Error(err),
		)
		pdfPath = ""
	}

	scanID := outcome.ScanID
	result.ScanID = &scanID
	result.PDFPath = pdfPath
	return result, nil
}

// getScanResults retrieves a stored scan and has the model summarize it.
func (o *Orchestrator) getScanResults(ctx context.Context, conv *service.ConversationContext, intent *service.Intent) (*QueryResult, error) {
	scanID := uintParam(intent.Parameters, "scan_id")
	sessionName := stringParam(intent.Parameters, "session_name")

	reply, err := o.reportUC.Results(ctx, conv, scanID, sessionName)
	if err != nil {
		var llmErr *service.LLMError
		if errors.As(err, &llmErr) {
			return o.modelFailure(err)
		}
		return nil, err
	}
	return &QueryResult{Response: reply}, nil
}

// generateDetailedHostReport renders the per-host PDF for a stored
// session. Both parameters are required.
func (o *Orchestrator) generateDetailedHostReport(ctx context.Context, intent *service.Intent) (*QueryResult, error) {
	hostIP := stringParam(intent.Parameters, "host_ip")
	sessionName := stringParam(intent.Parameters, "session_name")
	if hostIP == "" || sessionName == "" {
		return &QueryResult{Response: "Por favor, especifica tanto la IP del host como el nombre de la sesión para generar el informe detallado."}, nil
	}

	path, err := o.reportUC.GenerateDetailedHostReport(ctx, hostIP, sessionName)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &QueryResult{Response: fmt.Sprintf("No se pudo generar el informe detallado para %s en la sesión '%s'. Verifica que el host exista en esa sesión.", hostIP, sessionName)}, nil
		}
		return nil, err
	}

	return &QueryResult{
		Response: fmt.Sprintf("Informe detallado para %s en la sesión '%s' generado exitosamente: %s", hostIP, sessionName, path),
		PDFPath:  path,
	}, nil
}

// modelFailure maps provider failures to the fixed user replies. Quota
// and safety blocks are expected operational states, not server faults.
func (o *Orchestrator) modelFailure(err error) (*QueryResult, error) {
	switch {
	case service.IsQuotaError(err):
		o.logger.Warn("Model quota exhausted", zap.Error(err))
		return &QueryResult{Response: msgQuotaExceeded}, nil
	case service.IsBlockedError(err):
		o.logger.Warn("Query blocked by the provider", zap.Error(err))
		return &QueryResult{Response: msgBlockedQuery}, nil
	default:
		o.logger.Error("Model call failed", zap.Error(err))
		return &QueryResult{Response: msgModelDown}, nil
	}
}

// SynthesizeSessionName builds the session name used when the caller
// does not propose one: Escaneo_IA_<target>_<timestamp> with dots and
// slashes flattened so it can double as a directory name.
func SynthesizeSessionName(target string, now time.Time) string {
	sanitized := strings.NewReplacer(".", "_", "/", "_").Replace(target)
	return fmt.Sprintf("Escaneo_IA_%s_%s", sanitized, now.Format("20060102_150405"))
}

// stringParam extracts a string parameter, tolerating absent keys.
func stringParam(params map[string]interface{}, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// uintParam extracts a numeric parameter. Models send numbers both as
// JSON numbers and as digit strings.
func uintParam(params map[string]interface{}, key string) uint {
	if params == nil {
		return 0
	}
	switch v := params[key].(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case int:
		if v > 0 {
			return uint(v)
		}
	case string:
		var id uint
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &id); err == nil {
			return id
		}
	}
	return 0
}
