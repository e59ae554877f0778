package controller

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/likexian/whois"
	"github.com/sirupsen/logrus"

	"mailverify/config"
	"mailverify/models"
	"mailverify/utils"
	"mailverify/verifier"
	"mailverify/worker"
)

type VerificationController struct {
	Verifier *verifier.Verifier
	Bulk     *worker.BulkVerifier
	Logger   logrus.FieldLogger
	MaxBulk  int
	// RequestTimeout bounds a single full or deep verification. Zero means
	// only the per-stage timeouts apply.
	RequestTimeout time.Duration
	WhoisEnabled   bool
	// Whois returns raw WHOIS text for a domain.
	Whois func(domain string) (string, error)
}

func NewVerificationController(v *verifier.Verifier, logger logrus.FieldLogger, cfg config.Config) *VerificationController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VerificationController{
		Verifier:       v,
		Bulk:           worker.NewBulkVerifier(v, cfg.BulkWorkers, logger),
		Logger:         logger,
		MaxBulk:        cfg.BulkMaxEmails,
		RequestTimeout: cfg.RequestTimeout,
		WhoisEnabled:   cfg.WhoisEnabled,
		Whois:          whoisLookup(cfg.WhoisTimeout),
	}
}

func whoisLookup(timeout time.Duration) func(string) (string, error) {
	client := whois.NewClient().SetTimeout(timeout)
	return func(domain string) (string, error) {
		return client.Whois(domain)
	}
}

func (vc *VerificationController) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if vc.RequestTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), vc.RequestTimeout)
}

// QuickCheck handles GET /verify/quick?email=
func (vc *VerificationController) QuickCheck(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email address is required", nil)
	}
	return c.JSON(vc.Verifier.QuickCheck(email))
}

// FullVerify handles GET /verify/full?email=
func (vc *VerificationController) FullVerify(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email address is required", nil)
	}
	ctx, cancel := vc.requestContext(c)
	defer cancel()
	return c.JSON(vc.Verifier.FullVerify(ctx, email))
}

// DeepVerify handles POST /verify/deep. Routes guard it with admin auth and a
// per-operator rate limit.
func (vc *VerificationController) DeepVerify(c *fiber.Ctx) error {
	var request models.VerifyRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request format", err)
	}
	if err := utils.ValidateStruct(request); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	ctx, cancel := vc.requestContext(c)
	defer cancel()
	result := vc.Verifier.DeepVerify(ctx, request.Email)
	response := models.DeepVerifyResponse{Result: result}

	operator := ""
	if op, ok := c.Locals("operator").(*models.Operator); ok {
		operator = op.Subject
	}
	utils.LogEvent("deep_verify", map[string]interface{}{
		"operator":   operator,
		"email":      result.Email,
		"is_valid":   result.IsValid,
		"stage":      result.ReachedStage.String(),
		"smtp_code":  result.Diagnostics.SMTPCode,
		"smtp_state": result.Diagnostics.SMTPState,
	})

	if vc.WhoisEnabled && vc.Whois != nil {
		if addr, ok := verifier.ParseAddress(result.Email); ok {
			info, err := vc.Whois(addr.Domain)
			if err != nil {
				vc.Logger.WithError(err).WithField("domain", addr.Domain).Info("whois lookup failed")
			} else {
				response.WHOIS = info
			}
		}
	}

	return c.JSON(response)
}

// BulkVerify handles POST /verify/bulk at quick or full depth.
func (vc *VerificationController) BulkVerify(c *fiber.Ctx) error {
	var request models.BulkVerifyRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request format", err)
	}
	depth, err := vc.checkBulk(request)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, errTooManyEmails) {
			status = fiber.StatusRequestEntityTooLarge
		}
		return utils.ErrorResponse(c, status, "Invalid bulk request", err)
	}

	results, summary, err := vc.Bulk.Run(c.UserContext(), request.Emails, depth)
	if err != nil {
		utils.LogError("bulk_verify", err, map[string]interface{}{
			"count": len(request.Emails),
			"depth": depth.String(),
		})
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Bulk verification interrupted", err)
	}

	return c.JSON(models.BulkVerifyResponse{
		Depth:   depth,
		Results: results,
		Summary: summary,
	})
}

var errTooManyEmails = errors.New("too many emails in one request")

func (vc *VerificationController) checkBulk(request models.BulkVerifyRequest) (verifier.Depth, error) {
	if err := utils.ValidateStruct(request); err != nil {
		return verifier.DepthQuick, err
	}
	if vc.MaxBulk > 0 && len(request.Emails) > vc.MaxBulk {
		return verifier.DepthQuick, errTooManyEmails
	}
	if request.Depth == "" {
		return verifier.DepthQuick, nil
	}
	return verifier.ParseDepth(request.Depth)
}

// StreamVerify reads one bulk request from the socket and writes a result
// message per address as it completes, then a summary message.
func (vc *VerificationController) StreamVerify(conn *websocket.Conn) {
	defer conn.Close()

	var request models.BulkVerifyRequest
	if err := conn.ReadJSON(&request); err != nil {
		vc.Logger.WithError(err).Info("stream: bad request frame")
		_ = conn.WriteJSON(models.StreamMessage{Type: "error", Error: "Invalid request format"})
		return
	}
	depth, err := vc.checkBulk(request)
	if err != nil {
		_ = conn.WriteJSON(models.StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var summary models.BulkSummary
	seen := make([]bool, len(request.Emails))
	err = vc.Bulk.Stream(ctx, request.Emails, depth, func(i int, r *verifier.Result) error {
		seen[i] = true
		summary.Add(r)
		return conn.WriteJSON(models.StreamMessage{Type: "result", Index: i, Result: r})
	})
	if err != nil {
		vc.Logger.WithError(err).Info("stream: verification stopped")
		return
	}

	for _, ok := range seen {
		if !ok {
			summary.Add(nil)
		}
	}
	if err := conn.WriteJSON(models.StreamMessage{Type: "summary", Summary: &summary}); err != nil {
		vc.Logger.WithError(err).Info("stream: write summary failed")
	}
}

// HealthCheck reports liveness.
func HealthCheck(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": version,
		})
	}
}
