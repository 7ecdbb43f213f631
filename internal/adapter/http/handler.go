package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmolas/spagate/internal/app"
	"github.com/jmolas/spagate/internal/domain"
)

// SweepScheduler enqueues an on-demand sweep. The HTTP layer never runs the
// sweep inline: reads stay pure, and the downgrade work happens on the queue.
type SweepScheduler interface {
	TriggerSweep(ctx context.Context) error
}

// SpaResponse is the API representation of a spa.
type SpaResponse struct {
	ID              string `json:"id" doc:"Unique identifier"`
	Name            string `json:"name" doc:"Business name"`
	OwnerEmail      string `json:"owner_email" doc:"Primary contact"`
	Status          string `json:"status" doc:"Lifecycle status"`
	PaymentDueDate  string `json:"payment_due_date,omitempty" doc:"Next fee due date (ISO 8601), absent until a plan is paid"`
	PaymentPaid     bool   `json:"payment_paid" doc:"Current period's fee settled"`
	RejectReason    string `json:"reject_reason,omitempty" doc:"Present when rejected"`
	BlacklistReason string `json:"blacklist_reason,omitempty" doc:"Present when blacklisted"`
	CreatedAt       string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt       string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func toSpaResponse(s domain.Spa) SpaResponse {
	resp := SpaResponse{
		ID:              s.ID,
		Name:            s.Name,
		OwnerEmail:      s.OwnerEmail,
		Status:          string(s.Status),
		PaymentPaid:     s.PaymentPaid,
		RejectReason:    s.RejectReason,
		BlacklistReason: s.BlacklistReason,
		CreatedAt:       s.CreatedAt.Format(timeFormat),
		UpdatedAt:       s.UpdatedAt.Format(timeFormat),
	}
	if s.PaymentDueDate != nil {
		resp.PaymentDueDate = s.PaymentDueDate.Format(timeFormat)
	}
	return resp
}

// AccessResponse is the API representation of an access decision.
type AccessResponse struct {
	Level         string   `json:"level" doc:"Coarse access bucket"`
	Capabilities  []string `json:"capabilities" doc:"Permitted capability identifiers"`
	StatusMessage string   `json:"status_message" doc:"Human-readable status"`
	CanLogin      bool     `json:"can_login" doc:"Whether login is permitted at all"`
}

// PaymentWindowResponse reports the temporal payment state of a spa.
type PaymentWindowResponse struct {
	Overdue       bool `json:"overdue" doc:"Fee due date passed without payment"`
	GraceExpired  bool `json:"grace_expired" doc:"Overdue beyond the grace window"`
	DaysRemaining int  `json:"days_remaining" doc:"Whole days until the due date"`
	CanInitiate   bool `json:"can_initiate" doc:"Whether a payment may be submitted now"`
}

// PaymentResponse is the API representation of a payment.
type PaymentResponse struct {
	ID           string `json:"id" doc:"Unique identifier"`
	SpaID        string `json:"spa_id" doc:"Owning spa"`
	Plan         string `json:"plan" doc:"Billing plan"`
	Method       string `json:"method" doc:"Payment channel"`
	State        string `json:"state" doc:"Payment state"`
	Amount       int64  `json:"amount" doc:"Fee in satang"`
	SlipRef      string `json:"slip_ref,omitempty" doc:"Bank slip reference"`
	RejectReason string `json:"reject_reason,omitempty" doc:"Present when rejected"`
	CreatedAt    string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt    string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toPaymentResponse(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:           p.ID,
		SpaID:        p.SpaID,
		Plan:         string(p.Plan),
		Method:       string(p.Method),
		State:        string(p.State),
		Amount:       p.Amount,
		SlipRef:      p.SlipRef,
		RejectReason: p.RejectReason,
		CreatedAt:    p.CreatedAt.Format(timeFormat),
		UpdatedAt:    p.UpdatedAt.Format(timeFormat),
	}
}

// --- Register Spa ---

type RegisterSpaInput struct {
	Body struct {
		Name       string `json:"name" minLength:"1" maxLength:"255" doc:"Business name"`
		OwnerEmail string `json:"owner_email" format:"email" doc:"Primary contact email"`
	}
}

type RegisterSpaOutput struct {
	Body SpaResponse
}

// --- Get / List ---

type GetSpaInput struct {
	ID string `path:"id" doc:"Spa ID"`
}

type GetSpaOutput struct {
	Body SpaResponse
}

type ListSpasInput struct {
	Status string `query:"status" required:"false" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListSpasOutput struct {
	Body []SpaResponse
}

// --- Access / Payment window ---

type AccessOutput struct {
	Body AccessResponse
}

type PaymentWindowOutput struct {
	Body PaymentWindowResponse
}

// --- Admin transitions ---

type ApproveSpaInput struct {
	ID   string `path:"id" doc:"Spa ID"`
	Body struct {
		ActorID string `json:"actor_id" minLength:"1" doc:"Admin performing the approval"`
		Notes   string `json:"notes,omitempty" doc:"Optional review notes"`
	}
}

type ReasonedTransitionInput struct {
	ID   string `path:"id" doc:"Spa ID"`
	Body struct {
		ActorID string `json:"actor_id" minLength:"1" doc:"Admin performing the action"`
		Reason  string `json:"reason" doc:"Explanation shown to the spa"`
	}
}

type TransitionOutput struct {
	Body SpaResponse
}

// --- Payments ---

type SubmitPaymentInput struct {
	ID   string `path:"id" doc:"Spa ID"`
	Body struct {
		ActorID string `json:"actor_id" minLength:"1" doc:"Actor submitting the payment"`
		Plan    string `json:"plan" enum:"monthly,quarterly,half_year,annual" doc:"Billing plan"`
		Method  string `json:"method" enum:"card,bank_transfer" doc:"Payment channel"`
		SlipRef string `json:"slip_ref,omitempty" doc:"Bank slip reference (bank transfers)"`
	}
}

type PaymentOutput struct {
	Body PaymentResponse
}

type ListPaymentsInput struct {
	ID string `path:"id" doc:"Spa ID"`
}

type ListPaymentsOutput struct {
	Body []PaymentResponse
}

type ApprovePaymentInput struct {
	ID   string `path:"id" doc:"Payment ID"`
	Body struct {
		ActorID string `json:"actor_id" minLength:"1" doc:"Admin approving the slip"`
	}
}

type RejectPaymentInput struct {
	ID   string `path:"id" doc:"Payment ID"`
	Body struct {
		ActorID string `json:"actor_id" minLength:"1" doc:"Admin rejecting the slip"`
		Reason  string `json:"reason" doc:"Why the slip was rejected"`
	}
}

type ResubmitPaymentInput struct {
	ID   string `path:"id" doc:"Payment ID"`
	Body struct {
		SlipRef string `json:"slip_ref" minLength:"1" doc:"New bank slip reference"`
	}
}

// --- Sweep ---

type SweepOutput struct {
	Body struct {
		Scheduled bool      `json:"scheduled" doc:"Sweep job enqueued"`
		At        time.Time `json:"at" doc:"Enqueue time"`
	}
}

// Register adds all spa API routes to the Huma API.
func Register(api huma.API, svc *app.LifecycleService, payments *app.PaymentService, sweeps SweepScheduler) {
	huma.Register(api, huma.Operation{
		OperationID: "register-spa",
		Method:      http.MethodPost,
		Path:        "/api/v1/spas",
		Summary:     "Register a new spa",
		Tags:        []string{"Spas"},
	}, func(ctx context.Context, input *RegisterSpaInput) (*RegisterSpaOutput, error) {
		spa, err := svc.Register(ctx, input.Body.Name, input.Body.OwnerEmail)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegisterSpaOutput{Body: toSpaResponse(spa)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-spa",
		Method:      http.MethodGet,
		Path:        "/api/v1/spas/{id}",
		Summary:     "Get a spa by ID",
		Tags:        []string{"Spas"},
	}, func(ctx context.Context, input *GetSpaInput) (*GetSpaOutput, error) {
		spa, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetSpaOutput{Body: toSpaResponse(spa)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-spas",
		Method:      http.MethodGet,
		Path:        "/api/v1/spas",
		Summary:     "List spas",
		Tags:        []string{"Spas"},
	}, func(ctx context.Context, input *ListSpasInput) (*ListSpasOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		spas, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]SpaResponse, len(spas))
		for i, s := range spas {
			resp[i] = toSpaResponse(s)
		}
		return &ListSpasOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-spa-access",
		Method:      http.MethodGet,
		Path:        "/api/v1/spas/{id}/access",
		Summary:     "Resolve the spa's current access decision",
		Tags:        []string{"Access"},
	}, func(ctx context.Context, input *GetSpaInput) (*AccessOutput, error) {
		decision, err := svc.Access(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		caps := make([]string, len(decision.Capabilities))
		for i, c := range decision.Capabilities {
			caps[i] = string(c)
		}
		return &AccessOutput{Body: AccessResponse{
			Level:         string(decision.Level),
			Capabilities:  caps,
			StatusMessage: decision.StatusMessage,
			CanLogin:      decision.CanLogin,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-spa-payment-window",
		Method:      http.MethodGet,
		Path:        "/api/v1/spas/{id}/payment-window",
		Summary:     "Evaluate the spa's payment window",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *GetSpaInput) (*PaymentWindowOutput, error) {
		window, err := svc.PaymentWindow(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PaymentWindowOutput{Body: PaymentWindowResponse{
			Overdue:       window.Overdue,
			GraceExpired:  window.GraceExpired,
			DaysRemaining: window.DaysRemaining,
			CanInitiate:   window.CanInitiate,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-spa",
		Method:      http.MethodPost,
		Path:        "/api/v1/spas/{id}/approve",
		Summary:     "Approve a pending spa",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *ApproveSpaInput) (*TransitionOutput, error) {
		spa, err := svc.Approve(ctx, input.ID, input.Body.ActorID, input.Body.Notes)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toSpaResponse(spa)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-spa",
		Method:      http.MethodPost,
		Path:        "/api/v1/spas/{id}/reject",
		Summary:     "Reject a pending spa",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *ReasonedTransitionInput) (*TransitionOutput, error) {
		spa, err := svc.Reject(ctx, input.ID, input.Body.ActorID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toSpaResponse(spa)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "blacklist-spa",
		Method:      http.MethodPost,
		Path:        "/api/v1/spas/{id}/blacklist",
		Summary:     "Blacklist a spa",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *ReasonedTransitionInput) (*TransitionOutput, error) {
		spa, err := svc.Blacklist(ctx, input.ID, input.Body.ActorID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toSpaResponse(spa)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/spas/{id}/payments",
		Summary:     "Submit a fee payment",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *SubmitPaymentInput) (*PaymentOutput, error) {
		pmt, err := payments.Submit(ctx, input.ID, input.Body.ActorID,
			domain.Plan(input.Body.Plan), domain.PaymentMethod(input.Body.Method), input.Body.SlipRef)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PaymentOutput{Body: toPaymentResponse(pmt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-spa-payments",
		Method:      http.MethodGet,
		Path:        "/api/v1/spas/{id}/payments",
		Summary:     "List a spa's payments",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *ListPaymentsInput) (*ListPaymentsOutput, error) {
		list, err := payments.ListBySpa(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]PaymentResponse, len(list))
		for i, p := range list {
			resp[i] = toPaymentResponse(p)
		}
		return &ListPaymentsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/payments/{id}/approve",
		Summary:     "Approve a pending bank transfer",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *ApprovePaymentInput) (*PaymentOutput, error) {
		pmt, err := payments.Approve(ctx, input.ID, input.Body.ActorID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PaymentOutput{Body: toPaymentResponse(pmt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/payments/{id}/reject",
		Summary:     "Reject a pending bank transfer",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *RejectPaymentInput) (*PaymentOutput, error) {
		pmt, err := payments.Reject(ctx, input.ID, input.Body.ActorID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PaymentOutput{Body: toPaymentResponse(pmt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resubmit-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/payments/{id}/resubmit",
		Summary:     "Resubmit a rejected bank transfer with a new slip",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *ResubmitPaymentInput) (*PaymentOutput, error) {
		pmt, err := payments.Resubmit(ctx, input.ID, input.Body.SlipRef)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PaymentOutput{Body: toPaymentResponse(pmt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "trigger-sweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/sweep",
		Summary:     "Schedule an immediate payment-lapse sweep",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
		if err := sweeps.TriggerSweep(ctx); err != nil {
			return nil, toHumaError(err)
		}
		out := &SweepOutput{}
		out.Body.Scheduled = true
		out.Body.At = time.Now().UTC()
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrSpaNotFound) {
		return huma.Error404NotFound("spa not found")
	}
	if errors.Is(err, domain.ErrPaymentNotFound) {
		return huma.Error404NotFound("payment not found")
	}

	var reasonErr *domain.MissingReasonError
	if errors.As(err, &reasonErr) {
		return huma.Error422UnprocessableEntity(reasonErr.Error())
	}

	var trErr *domain.IllegalTransitionError
	if errors.As(err, &trErr) {
		return huma.Error409Conflict(trErr.Error())
	}

	var windowErr *domain.PaymentWindowClosedError
	if errors.As(err, &windowErr) {
		return huma.Error409Conflict(windowErr.Error())
	}

	var stateErr *domain.PaymentStateError
	if errors.As(err, &stateErr) {
		return huma.Error409Conflict(stateErr.Error())
	}

	var invalidErr *domain.InvalidStateError
	if errors.As(err, &invalidErr) {
		// Corrupt persisted status: fail closed, never map to anything permissive.
		return huma.Error500InternalServerError(invalidErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
