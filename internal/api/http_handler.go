package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
	"storefront-service/internal/session"
)

// SessionHeader carries the shopper session id in both directions.
const SessionHeader = "X-Session-Id"

// ProductQuerier answers product reads. *catalog.Service satisfies it.
type ProductQuerier interface {
	Query(ctx context.Context, f catalog.Filter) (catalog.Page, error)
	GetByID(ctx context.Context, id string, gender domain.Gender) (domain.Product, error)
	Facets(ctx context.Context, f catalog.Filter) (catalog.Facets, error)
	LineItem(ctx context.Context, id string, gender domain.Gender, size, color string, qty int) (domain.LineItem, error)
}

// SessionProvider hands out the stores of one session. *session.Registry satisfies it.
type SessionProvider interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	products ProductQuerier
	sessions SessionProvider
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(products ProductQuerier, sessions SessionProvider, log logrus.FieldLogger) *HTTPHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTPHandler{
		products: products,
		sessions: sessions,
		validate: validator.New(),
		log:      log.WithField("component", "http"),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("failed to encode JSON response")
	}
}

// respondWithCatalogError maps catalog failures onto status codes.
func (h *HTTPHandler) respondWithCatalogError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	l := h.log.WithError(err).WithField("path", r.URL.Path)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondWithError(w, http.StatusNotFound, catalog.ErrProductNotFound.Error())
	case errors.Is(err, catalog.ErrVariantNotFound):
		respondWithError(w, http.StatusNotFound, catalog.ErrVariantNotFound.Error())
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		l.Warn("catalog unavailable")
		respondWithError(w, http.StatusServiceUnavailable, catalog.ErrCatalogUnavailable.Error())
	case errors.Is(err, context.DeadlineExceeded):
		l.Warn("catalog request timed out")
		respondWithError(w, http.StatusGatewayTimeout, "Catalog request timed out")
	default:
		l.Error(fallback)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

type sessionKey struct{}

// withSession resolves the session named by X-Session-Id, issuing a new id when the
// header is absent. The id in use is always echoed back. A session whose stored state
// cannot be read is answered with 503 rather than served empty.
func (h *HTTPHandler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id == "" {
			id = session.NewID()
		} else if !session.ValidID(id) {
			respondWithError(w, http.StatusBadRequest, "Invalid session id")
			return
		}
		w.Header().Set(SessionHeader, id)
		sess, err := h.sessions.Get(r.Context(), id)
		if err != nil {
			if r.Context().Err() == nil {
				h.log.WithError(err).WithField("session_id", id).Warn("failed to open session")
			}
			respondWithError(w, http.StatusServiceUnavailable, "Session storage unavailable")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}

// --- Product Handlers ---

// PaginationInfo describes the page returned and the whole result.
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ProductListResponse is the body of GET /api/v1/products.
type ProductListResponse struct {
	Data       []domain.Product `json:"data"`
	Pagination PaginationInfo   `json:"pagination"`
	Degraded   bool             `json:"degraded"`
}

// parseFilter reads product filters from query parameters. Paging values that do not
// parse fall back to the defaults.
func parseFilter(q url.Values) (catalog.Filter, error) {
	var f catalog.Filter

	gender, ok := domain.ParseGender(q.Get("gender"))
	if !ok {
		return f, errors.New("Invalid gender: must be men, women or kids")
	}
	f.Gender = gender
	f.CategoryID = strings.TrimSpace(q.Get("category_id"))
	f.CatalogueID = strings.TrimSpace(q.Get("catalogue_id"))
	f.Brand = strings.TrimSpace(q.Get("brand"))

	for _, p := range []struct {
		name string
		dst  **float64
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return f, errors.New("Invalid " + p.name + " format")
		}
		*p.dst = &v
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, errors.New("min_price cannot exceed max_price")
	}

	if s := q.Get("tags"); s != "" {
		f.Tags = strings.Split(s, ",")
	}
	for _, b := range []struct {
		name string
		dst  *bool
	}{{"is_featured", &f.Featured}, {"in_stock_only", &f.InStockOnly}} {
		s := q.Get(b.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			return f, errors.New("Invalid " + b.name + " value: must be true or false")
		}
		*b.dst = v
	}

	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("limit"))
	if f.PerPage == 0 {
		f.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	}
	return f, nil
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.products.Query(r.Context(), f)
	if err != nil {
		h.respondWithCatalogError(w, r, err, "Failed to retrieve products")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductListResponse{
		Data: page.Items,
		Pagination: PaginationInfo{
			Page:       page.Page,
			Limit:      page.PerPage,
			TotalItems: page.Total,
			TotalPages: page.TotalPages,
		},
		Degraded: page.Degraded,
	})
}

func (h *HTTPHandler) GetProductFacets(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	facets, err := h.products.Facets(r.Context(), f)
	if err != nil {
		h.respondWithCatalogError(w, r, err, "Failed to compute facets")
		return
	}
	respondWithJSON(w, http.StatusOK, facets)
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	gender, ok := domain.ParseGender(r.URL.Query().Get("gender"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid gender: must be men, women or kids")
		return
	}

	product, err := h.products.GetByID(r.Context(), productID, gender)
	if err != nil {
		h.respondWithCatalogError(w, r, err, "Failed to retrieve product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// --- Cart Handlers ---

// CartResponse is the full cart with its derived summary.
type CartResponse struct {
	Items   []domain.LineItem  `json:"items"`
	Summary domain.CartSummary `json:"summary"`
}

// CartMutationResponse reports the outcome of a stock-checked change and the resulting cart.
type CartMutationResponse struct {
	Outcome cart.Outcome `json:"outcome"`
	Cart    CartResponse `json:"cart"`
}

func cartBody(c *cart.Store) CartResponse {
	return CartResponse{Items: c.Items(), Summary: c.Summary()}
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, cartBody(sessionFrom(r).Cart))
}

// CartAddInput names the variant to add. Name, brand, prices and image are read from
// the catalog, never from the request.
type CartAddInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	Gender    string `json:"gender"`
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input CartAddInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.Quantity < 0 {
		respondWithError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}
	gender, ok := domain.ParseGender(input.Gender)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid gender: must be men, women or kids")
		return
	}

	line, err := h.products.LineItem(r.Context(), input.ProductID, gender, input.Size, input.Color, input.Quantity)
	if err != nil {
		h.respondWithCatalogError(w, r, err, "Failed to retrieve product")
		return
	}
	c := sessionFrom(r).Cart
	outcome := c.AddItem(r.Context(), line)
	code := http.StatusCreated
	if !outcome.Accepted {
		code = http.StatusConflict
	}
	respondWithJSON(w, code, CartMutationResponse{Outcome: outcome, Cart: cartBody(c)})
}

// CartUpdateInput defines the expected input for changing a line quantity.
type CartUpdateInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var input CartUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	c := sessionFrom(r).Cart
	outcome := c.UpdateQuantity(r.Context(), input.ProductID, input.Size, input.Color, input.Quantity)
	code := http.StatusOK
	if !outcome.Accepted {
		code = http.StatusConflict
	}
	respondWithJSON(w, code, CartMutationResponse{Outcome: outcome, Cart: cartBody(c)})
}

// variantParams reads product_id, size and color from the query string.
func variantParams(q url.Values) (productID, size, color string, ok bool) {
	productID = strings.TrimSpace(q.Get("product_id"))
	size = strings.TrimSpace(q.Get("size"))
	color = q.Get("color")
	return productID, size, color, productID != "" && size != ""
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID, size, color, ok := variantParams(r.URL.Query())
	if !ok {
		respondWithError(w, http.StatusBadRequest, "product_id and size are required")
		return
	}
	sessionFrom(r).Cart.RemoveItem(r.Context(), productID, size, color)
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Cart.Clear(r.Context())
	respondWithJSON(w, http.StatusNoContent, nil)
}

// AvailabilityResponse answers whether a quantity of a variant can still be added.
type AvailabilityResponse struct {
	InCart int  `json:"in_cart"`
	Stock  int  `json:"stock"`
	CanAdd bool `json:"can_add"`
}

func (h *HTTPHandler) GetCartAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, size, color, ok := variantParams(q)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "product_id and size are required")
		return
	}
	qty := 1
	if s := q.Get("quantity"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid quantity: must be a positive integer")
			return
		}
		qty = n
	}

	c := sessionFrom(r).Cart
	respondWithJSON(w, http.StatusOK, AvailabilityResponse{
		InCart: c.QuantityInCart(productID, size, color),
		Stock:  c.StockFor(productID, size, color),
		CanAdd: c.CanAdd(productID, size, color, qty),
	})
}

// --- Wishlist Handlers ---

// WishlistResponse is the saved products of a session.
type WishlistResponse struct {
	Items []domain.Product `json:"items"`
	Count int              `json:"count"`
}

// WishlistInput names the product to save. The product itself is read from the catalog.
type WishlistInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Gender    string `json:"gender"`
}

// WishlistMutationResponse reports whether the product is saved after the change.
type WishlistMutationResponse struct {
	InWishlist bool             `json:"in_wishlist"`
	Wishlist   WishlistResponse `json:"wishlist"`
}

func (h *HTTPHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wl := sessionFrom(r).Wishlist
	respondWithJSON(w, http.StatusOK, WishlistResponse{Items: wl.Items(), Count: wl.ItemCount()})
}

// wishlistProduct decodes a WishlistInput and resolves it against the catalog.
// It writes the error response itself and reports false on failure.
func (h *HTTPHandler) wishlistProduct(w http.ResponseWriter, r *http.Request) (domain.Product, bool) {
	var input WishlistInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return domain.Product{}, false
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return domain.Product{}, false
	}
	gender, ok := domain.ParseGender(input.Gender)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid gender: must be men, women or kids")
		return domain.Product{}, false
	}

	product, err := h.products.GetByID(r.Context(), input.ProductID, gender)
	if err != nil {
		h.respondWithCatalogError(w, r, err, "Failed to retrieve product")
		return domain.Product{}, false
	}
	return product, true
}

func (h *HTTPHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	product, ok := h.wishlistProduct(w, r)
	if !ok {
		return
	}
	wl := sessionFrom(r).Wishlist
	code := http.StatusOK
	if wl.Add(r.Context(), product) {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, WishlistMutationResponse{
		InWishlist: true,
		Wishlist:   WishlistResponse{Items: wl.Items(), Count: wl.ItemCount()},
	})
}

func (h *HTTPHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	product, ok := h.wishlistProduct(w, r)
	if !ok {
		return
	}
	wl := sessionFrom(r).Wishlist
	saved := wl.Toggle(r.Context(), product)
	respondWithJSON(w, http.StatusOK, WishlistMutationResponse{
		InWishlist: saved,
		Wishlist:   WishlistResponse{Items: wl.Items(), Count: wl.ItemCount()},
	})
}

func (h *HTTPHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	sessionFrom(r).Wishlist.Remove(r.Context(), productID)
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Wishlist.Clear(r.Context())
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		// before {productId} so "facets" is not taken for an id
		r.Get("/facets", h.GetProductFacets)
		r.Get("/{productId}", h.GetProductByID)
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(h.withSession)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Get("/availability", h.GetCartAvailability)
		r.Post("/items", h.AddCartItem)
		r.Put("/items", h.UpdateCartItem)
		r.Delete("/items", h.RemoveCartItem)
	})

	r.Route("/api/v1/wishlist", func(r chi.Router) {
		r.Use(h.withSession)
		r.Get("/", h.GetWishlist)
		r.Post("/", h.AddToWishlist)
		r.Delete("/", h.ClearWishlist)
		r.Post("/toggle", h.ToggleWishlist)
		r.Delete("/{productId}", h.RemoveFromWishlist)
	})
}
