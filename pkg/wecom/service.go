// Package wecom orchestrates the WeCom group-bot connector: it resolves each
// input row to a formatter, builds and validates the wire message, and hands
// it to the delivery client. Output cardinality is strict, one result row per
// input row in input order.
package wecom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/flownode/pkg/logger"
	"github.com/kart-io/flownode/pkg/observability"
	"github.com/kart-io/flownode/pkg/params"
	"github.com/kart-io/flownode/pkg/wecom/client"
	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/formatter"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

// Sender delivers one wire-format message. *client.Client satisfies it; tests
// substitute their own.
type Sender interface {
	Send(ctx context.Context, msg *message.Message) (*client.Outcome, error)
}

// RowResult is the output row produced for one input row.
type RowResult struct {
	Success      bool       `json:"success"`
	MessageID    string     `json:"message_id,omitempty"`
	ErrorCode    int        `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Timestamp    int64      `json:"timestamp"`
	MessageType  string     `json:"message_type"`
	Input        params.Row `json:"input"`
}

// Options tunes the orchestration run.
type Options struct {
	// ContinueOnFail keeps processing subsequent rows after a failure instead
	// of stopping the run.
	ContinueOnFail bool
}

// Service runs the connector over a batch of input rows.
type Service struct {
	sender    Sender
	logger    *logger.BufferedLogger
	stats     *wecomerrors.Statistics
	telemetry *observability.TelemetryProvider
	opts      Options
}

// NewService wires a service around a sender. A nil logger buffers nothing;
// a nil statistics object is created fresh for the run.
func NewService(sender Sender, log *logger.BufferedLogger, stats *wecomerrors.Statistics, opts Options) *Service {
	if log == nil {
		log = logger.NewBuffered("wecom", logger.Options{Level: logger.Silent})
	}
	if stats == nil {
		stats = wecomerrors.NewStatistics()
	}
	return &Service{sender: sender, logger: log, stats: stats, opts: opts}
}

// WithTelemetry attaches a telemetry provider. Without one the service emits
// no spans or metrics.
func (s *Service) WithTelemetry(tp *observability.TelemetryProvider) *Service {
	s.telemetry = tp
	return s
}

// Execute processes rows sequentially in order and returns exactly one result
// per input row. Row failures become failed result rows; without
// ContinueOnFail the first failure stops the run after its row is recorded,
// and the remaining rows are not represented in the output.
func (s *Service) Execute(ctx context.Context, rows []params.Row) ([]RowResult, error) {
	start := time.Now()
	s.logger.ExecutionStart("send")
	s.logger.Info("processing input rows", "count", len(rows))

	results := make([]RowResult, 0, len(rows))
	var firstErr error
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := s.processRow(ctx, i, row)
		if s.telemetry != nil {
			s.telemetry.RecordRowProcessed(ctx, result.MessageType, result.Success)
		}
		results = append(results, result)
		if !result.Success {
			if firstErr == nil {
				firstErr = fmt.Errorf("row %d: [%d] %s", i, result.ErrorCode, result.ErrorMessage)
			}
			if !s.opts.ContinueOnFail {
				break
			}
		}
	}

	s.logger.ExecutionEnd("send", time.Since(start), firstErr == nil)
	if !s.opts.ContinueOnFail && firstErr != nil {
		return results, firstErr
	}
	return results, nil
}

// processRow handles one input row end to end. Every failure path produces a
// failed result row rather than a bare error.
func (s *Service) processRow(ctx context.Context, index int, row params.Row) RowResult {
	kindRaw := strings.TrimSpace(row.GetString("message_type"))
	if s.telemetry == nil {
		return s.runRow(ctx, index, row, kindRaw)
	}
	ctx, span := s.telemetry.TraceRow(ctx, index, kindRaw)
	result := s.runRow(ctx, index, row, kindRaw)
	if result.Success {
		s.telemetry.SetSpanSuccess(span)
	} else {
		s.telemetry.SetSpanError(span, fmt.Errorf("[%d] %s", result.ErrorCode, result.ErrorMessage))
	}
	span.End()
	return result
}

func (s *Service) runRow(ctx context.Context, index int, row params.Row, kindRaw string) RowResult {
	rowLog := s.logger.Child(fmt.Sprintf("row-%d", index))
	if kindRaw == "" {
		kindRaw = string(message.KindText)
	}
	kind := message.Kind(kindRaw)
	if !kind.Valid() {
		err := wecomerrors.Newf(40008, "unsupported message type %q, expected one of %s",
			kindRaw, strings.Join(kindStrings(), ", "))
		rowLog.Error("message type rejected", "message_type", kindRaw)
		return failedRow(row, kindRaw, err)
	}

	f, err := formatter.ForKind(kind)
	if err != nil {
		return failedRow(row, kindRaw, wecomerrors.FromError(err))
	}

	input := buildInput(row)
	msg, err := f.Format(input)
	if err != nil {
		botErr := wecomerrors.FromError(err)
		rowLog.Validation(string(kind), false, []string{botErr.Message})
		return failedRow(row, kindRaw, botErr)
	}

	if result := f.Validate(msg); !result.Valid {
		rowLog.Validation(string(kind), false, result.Errors)
		return failedRow(row, kindRaw, validationFailure(result))
	}
	rowLog.Validation(string(kind), true, nil)

	outcome, err := s.deliver(ctx, kind, msg)
	if err != nil {
		botErr := wecomerrors.FromError(err)
		if outcome == nil {
			return failedRow(row, kindRaw, botErr)
		}
		return RowResult{
			Success:      false,
			ErrorCode:    outcome.ErrorCode,
			ErrorMessage: outcome.ErrorMessage,
			Timestamp:    outcome.Timestamp,
			MessageType:  kindRaw,
			Input:        row,
		}
	}
	return RowResult{
		Success:     true,
		MessageID:   outcome.MessageID,
		Timestamp:   outcome.Timestamp,
		MessageType: kindRaw,
		Input:       row,
	}
}

// deliver hands the message to the sender, wrapped in a delivery span with
// the sent/failed counters and the duration histogram.
func (s *Service) deliver(ctx context.Context, kind message.Kind, msg *message.Message) (*client.Outcome, error) {
	if s.telemetry == nil {
		return s.sender.Send(ctx, msg)
	}
	ctx, span := s.telemetry.TraceDelivery(ctx, string(kind))
	defer span.End()

	start := time.Now()
	outcome, err := s.sender.Send(ctx, msg)
	if err != nil {
		code := wecomerrors.FromError(err).Code
		if outcome != nil {
			code = outcome.ErrorCode
		}
		s.telemetry.RecordDeliveryFailed(ctx, string(kind), time.Since(start), code)
		s.telemetry.SetSpanError(span, err)
		return outcome, err
	}
	s.telemetry.RecordDeliverySent(ctx, string(kind), time.Since(start))
	s.telemetry.SetSpanSuccess(span)
	return outcome, nil
}

// validationFailure folds post-format violations into one parameter error.
// The set of message types is checked earlier, so a failed validation pass
// always reports on message content.
func validationFailure(result *formatter.ValidationResult) *wecomerrors.BotError {
	return wecomerrors.New(40035, result.ErrorText())
}

// buildInput maps a host row onto the formatter input, reading only the
// fields the resolved kind will use.
func buildInput(row params.Row) *formatter.Input {
	input := &formatter.Input{
		Content:         row.GetString("content"),
		MentionedUsers:  row.GetStrings("mentioned_users"),
		MentionedPhones: row.GetStrings("mentioned_mobiles"),
		ImageBase64:     row.GetString("image_base64"),
		ImageURL:        row.GetString("image_url"),
		MediaID:         row.GetString("media_id"),
	}
	for _, card := range row.GetRows("articles") {
		input.Cards = append(input.Cards, formatter.Card{
			Title:       card.GetString("title"),
			Description: card.GetString("description"),
			URL:         card.GetString("url"),
			PicURL:      card.GetString("picurl"),
		})
	}
	return input
}

func failedRow(row params.Row, kindRaw string, err *wecomerrors.BotError) RowResult {
	return RowResult{
		Success:      false,
		ErrorCode:    err.Code,
		ErrorMessage: err.Message,
		Timestamp:    time.Now().UnixMilli(),
		MessageType:  kindRaw,
		Input:        row,
	}
}

func kindStrings() []string {
	kinds := message.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
