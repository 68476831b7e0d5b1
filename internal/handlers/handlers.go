package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ab-1402/Bank-Buddy/configs"
	"github.com/ab-1402/Bank-Buddy/internal/chatbot"
	"github.com/ab-1402/Bank-Buddy/internal/httputil"
	"github.com/ab-1402/Bank-Buddy/internal/logger"
	"github.com/ab-1402/Bank-Buddy/internal/middleware"
	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/ab-1402/Bank-Buddy/internal/store"
	"github.com/ab-1402/Bank-Buddy/internal/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Store     store.Store
	Transfers *transfer.Service
	Bot       *chatbot.Bot
}

func New(st store.Store, transfers *transfer.Service, bot *chatbot.Bot) *Handler {
	return &Handler{Store: st, Transfers: transfers, Bot: bot}
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FullName        string `json:"fullName"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type TransferRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	ToUpiID string          `json:"toUpiId"`
}

type TransferResponse struct {
	Success     bool               `json:"success"`
	Transaction models.Transaction `json:"transaction"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.FullName == "" {
		httputil.WriteError(w, http.StatusBadRequest, "username, password and full name are required")
		return
	}
	if req.Password != req.ConfirmPassword {
		httputil.WriteError(w, http.StatusBadRequest, "passwords don't match")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := &models.User{
		Username: req.Username,
		Password: string(hash),
		FullName: req.FullName,
		Role:     models.RoleCustomer,
		Balance:  decimal.Zero,
	}
	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			httputil.WriteError(w, http.StatusBadRequest, "username already taken")
			return
		}
		logger.Log.Error("failed to create user", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed, User: *user})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	txns, err := h.Transfers.Transactions(r.Context(), userID)
	if err != nil {
		logger.Log.Error("failed to fetch transactions", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txns)
}

func (h *Handler) FraudAlerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	alerts, err := h.Transfers.FraudAlerts(r.Context(), userID)
	if err != nil {
		logger.Log.Error("failed to fetch fraud alerts", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch fraud alerts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alerts)
}

func (h *Handler) AccountByUpi(w http.ResponseWriter, r *http.Request) {
	upiID := chi.URLParam(r, "upiID")

	account, err := h.Transfers.AccountByUpi(r.Context(), upiID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		logger.Log.Error("failed to fetch account", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch account")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ToUpiID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "toUpiId is required")
		return
	}
	if req.Amount.Exponent() < -2 {
		httputil.WriteError(w, http.StatusBadRequest, "amount must have at most 2 decimal places")
		return
	}

	txn, err := h.Transfers.TransferMoney(r.Context(), senderID, req.Amount, req.ToUpiID)
	if err != nil {
		var insufficient *transfer.InsufficientBalanceError
		switch {
		case errors.Is(err, transfer.ErrInvalidAmount):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, transfer.ErrSenderNotFound),
			errors.Is(err, transfer.ErrReceiverNotFound):
			httputil.WriteError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &insufficient):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			logger.Log.Error("transfer failed", zap.Uint("sender", senderID), zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "transfer failed, no money was moved")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TransferResponse{Success: true, Transaction: *txn})
}

func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Transfers.Customers(r.Context())
	if err != nil {
		logger.Log.Error("failed to fetch customers", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch customers")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, customers)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		httputil.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID, reply := h.Bot.Reply(r.Context(), req.SessionID, userID, req.Message)
	httputil.WriteJSON(w, http.StatusOK, ChatResponse{SessionID: sessionID, Reply: reply})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return uint(id), true
}
