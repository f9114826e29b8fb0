package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/config"
    "github.com/iliyamo/study-abroad-marketplace/internal/middleware"
    "github.com/iliyamo/study-abroad-marketplace/internal/model"
    "github.com/iliyamo/study-abroad-marketplace/internal/repository"
    "github.com/iliyamo/study-abroad-marketplace/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
    Email           string `json:"email" validate:"required,email,max=120"`
    Password        string `json:"password" validate:"required,min=8,max=72"`
    FirstName       string `json:"first_name" validate:"required,max=50"`
    LastName        string `json:"last_name" validate:"required,max=50"`
    Phone           string `json:"phone" validate:"omitempty,max=20"`
    Country         string `json:"country" validate:"omitempty,len=2"`
    Role            string `json:"role" validate:"omitempty,oneof=student institution"`
    EducationLevel  string `json:"education_level" validate:"omitempty,max=50"`
    FieldOfInterest string `json:"field_of_interest" validate:"omitempty,max=100"`
}
type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User    model.User `json:"user"`
    Access  tokenPart  `json:"access"`
    Refresh tokenPart  `json:"refresh"`
}

// issue creates a token pair for u, stores the refresh hash and sets the
// access cookie used by the checkout return path.
func (h *AuthHandler) issue(c echo.Context, u model.User, status int) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }
    c.SetCookie(&http.Cookie{
        Name:     middleware.AccessCookie,
        Value:    access.Token,
        Path:     "/",
        Expires:  access.Exp,
        HttpOnly: true,
        Secure:   h.Cfg.Env == "prod",
        SameSite: http.SameSiteLaxMode,
    })
    return c.JSON(status, authResp{
        User:    u,
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    })
}

// Register creates a student or institution account and returns tokens.
// The admin role is never self-assigned.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    role := model.RoleStudent
    if req.Role != "" {
        r, err := model.ParseUserRole(req.Role)
        if err != nil || r == model.RoleAdmin {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
        }
        role = r
    }
    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
    }
    u := model.User{
        Email:           req.Email,
        PasswordHash:    hash,
        FirstName:       strings.TrimSpace(req.FirstName),
        LastName:        strings.TrimSpace(req.LastName),
        Phone:           strings.TrimSpace(req.Phone),
        Country:         strings.ToUpper(strings.TrimSpace(req.Country)),
        Role:            role,
        EducationLevel:  strings.TrimSpace(req.EducationLevel),
        FieldOfInterest: strings.TrimSpace(req.FieldOfInterest),
        IsActive:        true,
    }

    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    if err := h.Users.Create(ctx, &u); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }
    return h.issue(c, u, http.StatusCreated)
}

// Login verifies credentials and returns a new token pair. Inactive
// accounts are refused.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
    }
    if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
        if hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost); err == nil {
            if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
                c.Logger().Warnf("rehash password of user %d: %v", u.ID, err)
            }
        }
    }
    now := time.Now().UTC()
    if err := h.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
        c.Logger().Warnf("touch last login of user %d: %v", u.ID, err)
    }
    u.LastLoginAt = &now
    return h.issue(c, u, http.StatusOK)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke refresh failed"})
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
    }
    return h.issue(c, u, http.StatusOK)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the caller when only an access token is presented.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()

    c.SetCookie(&http.Cookie{Name: middleware.AccessCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

    if refreshToken != "" {
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }

    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
    }
    claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    u, err := h.Users.GetByID(ctx, middleware.UserID(c))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    return c.JSON(http.StatusOK, u)
}
