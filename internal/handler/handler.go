package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/honeynil/spriteshop/internal/infrastructure/auth"
	"github.com/honeynil/spriteshop/internal/models"
	service "github.com/honeynil/spriteshop/internal/services"
	"github.com/honeynil/spriteshop/internal/upload"
	pkgerrors "github.com/honeynil/spriteshop/pkg/errors"
)

// maxUploadSize bounds the whole multipart body before the validator sees it.
const maxUploadSize = 4 << 20

type Handler struct {
	service   service.MarketService
	uploads   *upload.Validator
	jwtSecret string
}

func NewHandler(s service.MarketService, uploads *upload.Validator, jwtSecret string) *Handler {
	return &Handler{service: s, uploads: uploads, jwtSecret: jwtSecret}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Home).Methods("GET")
	r.HandleFunc("/register", h.RegisterForm).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.LoginForm).Methods("GET")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("GET")
	r.HandleFunc("/about", h.About).Methods("GET")
	r.HandleFunc("/sprite/{id:[0-9]+}", h.SpriteDetail).Methods("GET")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/add_item", h.AddItemForm).Methods("GET")
	r.HandleFunc("/add_item", h.AddItem).Methods("POST")
	r.HandleFunc("/delete/{id:[0-9]+}", h.DeleteSprite).Methods("POST")
	r.HandleFunc("/profile", h.Profile).Methods("GET")
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sprites, err := h.service.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sprites == nil {
		sprites = []models.SpriteWithSeller{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"sprites": sprites})
}

func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"name":        "spriteshop",
		"description": "a small marketplace for digital sprite assets",
	})
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"page": "register"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	_, err := h.service.Register(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pkgerrors.ErrUsernameExists):
			h.writeError(w, http.StatusConflict, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"page": "login"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.service.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout clears the session whether or not the cookie is still valid.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
		if claims, err := auth.ParseSessionToken(cookie.Value, h.jwtSecret); err == nil {
			if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
				slog.Error("logout failed", "user_id", claims.UserID, "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) SpriteDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	sprite, err := h.service.SpriteDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrSpriteNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, sprite)
}

func (h *Handler) AddItemForm(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"page": "add_item"})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.Join(pkgerrors.ErrValidation, err))
		return
	}

	imagePath := ""
	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// No file supplied: fall back to the default image, no error.
	case err != nil:
		h.writeError(w, http.StatusBadRequest, err)
		return
	default:
		defer file.Close()
		imagePath, err = h.uploads.Store(header.Filename, file)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrUploadRejected) {
				h.writeError(w, http.StatusBadRequest, err)
			} else {
				h.writeError(w, http.StatusInternalServerError, err)
			}
			return
		}
	}

	_, err = h.service.CreateSprite(r.Context(), service.CreateSpriteInput{
		Name:             r.FormValue("name"),
		Price:            price,
		ShortDescription: r.FormValue("short_description"),
		LongDescription:  r.FormValue("long_description"),
		ImagePath:        imagePath,
		SellerID:         userID,
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *Handler) DeleteSprite(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.service.DeleteSprite(r.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrSpriteNotFound):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, pkgerrors.ErrNotOwner):
			h.writeError(w, http.StatusForbidden, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, sprites, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	if sprites == nil {
		sprites = []models.Sprite{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user,
		"sprites": sprites,
	})
}
