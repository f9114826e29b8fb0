package handler

import (
    "errors"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/model"
    "github.com/iliyamo/study-abroad-marketplace/internal/repository"
    "github.com/iliyamo/study-abroad-marketplace/internal/service"
)

// maxWebhookBody caps the webhook payload read into memory.
const maxWebhookBody = 64 << 10

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// PaymentHandler serves checkout, the browser return path, the provider
// webhook and payment history.
type PaymentHandler struct {
    Payments   *service.PaymentService
    LandingURL string
    // Timeout bounds requests that call the provider.
    Timeout time.Duration
}

func NewPaymentHandler(payments *service.PaymentService, landingURL string, providerTimeout time.Duration) *PaymentHandler {
    return &PaymentHandler{Payments: payments, LandingURL: landingURL, Timeout: requestTimeout + providerTimeout}
}

func wantsJSON(c echo.Context) bool {
    return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// landing redirects the browser to the landing page with a payment marker.
func (h *PaymentHandler) landing(c echo.Context, marker string) error {
    u, err := url.Parse(h.LandingURL)
    if err != nil || h.LandingURL == "" {
        return c.JSON(http.StatusOK, echo.Map{"payment": marker})
    }
    q := u.Query()
    q.Set("payment", marker)
    u.RawQuery = q.Encode()
    return c.Redirect(http.StatusSeeOther, u.String())
}

// Initiate starts the hosted checkout and answers 303 to the provider page,
// or {redirect_url} when the client asked for JSON.
func (h *PaymentHandler) Initiate(c echo.Context) error {
    appID, ok := paramID(c, "id")
    if !ok {
        return badID(c, "application id")
    }
    ctx, cancel := requestContext(c, h.Timeout)
    defer cancel()

    res, err := h.Payments.Initiate(ctx, principal(c), appID)
    if errors.Is(err, service.ErrAlreadyPaid) {
        return c.JSON(http.StatusConflict, echo.Map{"error": "application fee already paid", "payment": res.Payment})
    }
    if err != nil {
        return writeError(c, err)
    }
    if res.NoPaymentRequired {
        return c.JSON(http.StatusOK, echo.Map{"payment_required": false})
    }
    if wantsJSON(c) {
        return c.JSON(http.StatusOK, echo.Map{
            "payment_id":   res.Payment.ID,
            "redirect_url": res.RedirectURL,
            "resumed":      res.Resumed,
        })
    }
    return c.Redirect(http.StatusSeeOther, res.RedirectURL)
}

// Success is the browser return path. Any verification failure sends the
// browser to the landing page instead of an error page.
func (h *PaymentHandler) Success(c echo.Context) error {
    paymentID, _ := strconv.ParseUint(c.QueryParam("payment_id"), 10, 64)
    ctx, cancel := requestContext(c, h.Timeout)
    defer cancel()

    pay, err := h.Payments.ConfirmFromReturn(ctx, principal(c), c.QueryParam("session_id"), paymentID)
    if err != nil {
        c.Logger().Warnf("payment return %d not verified: %v", paymentID, err)
        return h.landing(c, "unverified")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "Payment received. Your application fee has been paid.",
        "payment": pay,
    })
}

// Cancel is the provider's cancel URL.
func (h *PaymentHandler) Cancel(c echo.Context) error {
    paymentID, _ := strconv.ParseUint(c.QueryParam("payment_id"), 10, 64)
    if paymentID == 0 {
        return h.landing(c, "cancelled")
    }
    ctx, cancel := requestContext(c, h.Timeout)
    defer cancel()
    pay, err := h.Payments.Cancel(ctx, principal(c), paymentID)
    if err != nil {
        c.Logger().Warnf("payment cancel %d: %v", paymentID, err)
        return h.landing(c, "cancelled")
    }
    if wantsJSON(c) {
        return c.JSON(http.StatusOK, pay)
    }
    if pay.Status == model.PaymentCompleted {
        return h.landing(c, "paid")
    }
    return h.landing(c, "cancelled")
}

// Webhook receives provider events. 200 acknowledges; 4xx tells the
// provider to retry or give up on a bad delivery.
func (h *PaymentHandler) Webhook(c echo.Context) error {
    body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
    }
    if len(body) > maxWebhookBody {
        return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "payload too large"})
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()

    out, err := h.Payments.ConfirmFromWebhook(ctx, body, c.Request().Header.Get(SignatureHeader))
    if err != nil {
        c.Logger().Warnf("webhook rejected: %v", err)
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// History lists the caller's payments. Query: status, from, to, page, per_page.
func (h *PaymentHandler) History(c echo.Context) error {
    f, err := paymentFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Payments.History(ctx, principal(c), f)
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}

func (h *PaymentHandler) Status(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "payment id")
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    view, err := h.Payments.Status(ctx, principal(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// Refund refunds a completed payment of the caller, or any payment for an
// admin.
func (h *PaymentHandler) Refund(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "payment id")
    }
    ctx, cancel := requestContext(c, h.Timeout)
    defer cancel()
    pay, err := h.Payments.Refund(ctx, principal(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, pay)
}

// List is the admin payment listing.
func (h *PaymentHandler) List(c echo.Context) error {
    f, err := paymentFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    f.UserID = queryUint(c, "user_id")
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Payments.List(ctx, principal(c), f)
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}

func paymentFilter(c echo.Context) (repository.PaymentFilter, error) {
    f := repository.PaymentFilter{Pagination: pagination(c)}
    if raw := c.QueryParam("status"); raw != "" {
        st, err := model.ParsePaymentStatus(raw)
        if err != nil {
            return f, err
        }
        f.Status = st
    }
    from, err := queryDate(c, "from")
    if err != nil {
        return f, err
    }
    to, err := queryDate(c, "to")
    if err != nil {
        return f, err
    }
    if to != nil {
        end := to.AddDate(0, 0, 1)
        to = &end
    }
    f.CreatedFrom, f.CreatedTo = from, to
    return f, nil
}
