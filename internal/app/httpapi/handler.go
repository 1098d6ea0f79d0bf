// Package httpapi exposes the marketplace services over a JSON REST API.
// Caller identity arrives in the X-Market-Account header and is normalised
// once at the boundary; handlers pass it into the services as an explicit
// parameter.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/bazarion/market_engine/internal/app"
	"github.com/bazarion/market_engine/internal/app/content"
	"github.com/bazarion/market_engine/internal/app/domain/money"
	storedomain "github.com/bazarion/market_engine/internal/app/domain/store"
	"github.com/bazarion/market_engine/internal/app/metrics"
	"github.com/bazarion/market_engine/internal/app/services/admin"
	"github.com/bazarion/market_engine/internal/app/services/auctions"
	"github.com/bazarion/market_engine/internal/app/services/escrow"
	"github.com/bazarion/market_engine/internal/app/services/market"
	"github.com/bazarion/market_engine/internal/app/services/rates"
	"github.com/bazarion/market_engine/internal/app/services/stores"
	"github.com/bazarion/market_engine/internal/app/storage"
)

// accountHeader carries the caller's account address.
const accountHeader = "X-Market-Account"

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/wallets/", h.walletResources)
	mux.HandleFunc("/products", h.products)
	mux.HandleFunc("/products/", h.productResources)
	mux.HandleFunc("/stores", h.stores)
	mux.HandleFunc("/stores/", h.storeResources)
	mux.HandleFunc("/auctions", h.auctions)
	mux.HandleFunc("/auctions/", h.auctionResources)
	mux.HandleFunc("/content", h.contentBlobs)
	mux.HandleFunc("/discovery/listings", h.discoveryListings)
	mux.HandleFunc("/discovery/auctions", h.discoveryAuctions)
	mux.HandleFunc("/admin/fees", h.adminFees)
	return mux
}

// account normalises the caller identity; empty means anonymous.
func account(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.Header.Get(accountHeader)))
}

// requireAccount rejects anonymous mutations.
func requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	acct := account(r)
	if acct == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing "+accountHeader+" header"))
		return "", false
	}
	return acct, true
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (h *handler) walletResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/wallets"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	address := strings.ToLower(parts[0])

	if len(parts) == 1 && r.Method == http.MethodGet {
		balance, err := h.app.Escrow.Balance(r.Context(), address)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"address": address, "available": balance})
		return
	}

	if len(parts) == 2 && parts[1] == "deposit" && r.Method == http.MethodPost {
		var payload struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		wlt, err := h.app.Escrow.Deposit(r.Context(), address, payload.Amount)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, wlt)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) products(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		seller, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var payload struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			ContentID   string          `json:"contentId"`
			PriceUSD    decimal.Decimal `json:"priceUsd"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p, err := h.app.Market.List(r.Context(), seller, payload.Name, payload.Description, payload.ContentID, payload.PriceUSD)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, p)

	case http.MethodGet:
		list, err := h.app.Market.ListAll(r.Context())
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) productResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/products"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	productID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			p, err := h.app.Market.Get(r.Context(), productID)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		case http.MethodDelete:
			caller, ok := requireAccount(w, r)
			if !ok {
				return
			}
			if err := h.app.Market.Remove(r.Context(), productID, caller); err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	caller, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var (
		p   interface{}
		err error
	)
	switch parts[1] {
	case "purchase":
		p, err = h.app.Market.Purchase(r.Context(), productID, caller)
	case "send":
		p, err = h.app.Market.Send(r.Context(), productID, caller)
	case "confirm":
		p, err = h.app.Market.ConfirmReceived(r.Context(), productID, caller)
	case "cancel":
		p, err = h.app.Market.CancelPurchase(r.Context(), productID, caller)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) stores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		owner, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var payload struct {
			MetadataContentID string `json:"metadataContentId"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st, err := h.app.Stores.CreateStore(r.Context(), owner, payload.MetadataContentID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, st)

	case http.MethodGet:
		list, err := h.app.Stores.ListStores(r.Context())
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) storeResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/stores"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	storeID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		st, err := h.app.Stores.GetStore(r.Context(), storeID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, st)
		return
	}

	switch parts[1] {
	case "products":
		h.storeProducts(w, r, storeID, parts[2:])
	case "orders":
		h.storeOrders(w, r, storeID, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) storeProducts(w http.ResponseWriter, r *http.Request, storeID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			caller, ok := requireAccount(w, r)
			if !ok {
				return
			}
			var payload struct {
				Name         string          `json:"name"`
				Description  string          `json:"description"`
				ContentID    string          `json:"contentId"`
				PriceUSD     decimal.Decimal `json:"priceUsd"`
				QuantityMode string          `json:"quantityMode"`
				Quantity     int64           `json:"quantity"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			p, err := h.app.Stores.AddProduct(r.Context(), storeID, caller, payload.Name, payload.Description, payload.ContentID,
				payload.PriceUSD, storedomain.QuantityMode(strings.ToUpper(payload.QuantityMode)), payload.Quantity)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, p)
		case http.MethodGet:
			list, err := h.app.Stores.ListProducts(r.Context(), storeID)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	productID := rest[0]
	if len(rest) == 1 {
		switch r.Method {
		case http.MethodDelete:
			caller, ok := requireAccount(w, r)
			if !ok {
				return
			}
			if err := h.app.Stores.RemoveProduct(r.Context(), productID, caller); err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			p, err := h.app.Stores.GetProduct(r.Context(), productID)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(rest) == 2 && rest[1] == "reviews" && r.Method == http.MethodGet {
		reviews, err := h.app.Stores.ListReviews(r.Context(), productID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, reviews)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) storeOrders(w http.ResponseWriter, r *http.Request, storeID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			buyer, ok := requireAccount(w, r)
			if !ok {
				return
			}
			var payload struct {
				ProductID string `json:"productId"`
				Quantity  int64  `json:"quantity"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			o, err := h.app.Stores.CreateBuyOrder(r.Context(), payload.ProductID, buyer, payload.Quantity)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, o)
		case http.MethodGet:
			list, err := h.app.Stores.ListOrders(r.Context(), storeID)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	orderID := rest[0]
	if len(rest) == 1 && r.Method == http.MethodGet {
		o, err := h.app.Stores.GetOrder(r.Context(), orderID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, o)
		return
	}

	if len(rest) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	caller, ok := requireAccount(w, r)
	if !ok {
		return
	}

	switch rest[1] {
	case "fill":
		o, err := h.app.Stores.FillOrder(r.Context(), orderID, caller)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case "confirm":
		o, err := h.app.Stores.ConfirmReceived(r.Context(), orderID, caller)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case "cancel":
		o, err := h.app.Stores.CancelOrder(r.Context(), orderID, caller)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case "review":
		var payload struct {
			Rating int    `json:"rating"`
			Text   string `json:"text"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rev, err := h.app.Stores.LeaveReview(r.Context(), orderID, caller, payload.Rating, payload.Text)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, rev)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) auctions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		seller, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var payload struct {
			MetadataContentID string          `json:"metadataContentId"`
			StartPriceUSD     decimal.Decimal `json:"startPriceUsd"`
			DurationSeconds   int64           `json:"durationSeconds"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a, err := h.app.Auctions.StartAuction(r.Context(), seller, payload.MetadataContentID, payload.StartPriceUSD,
			time.Duration(payload.DurationSeconds)*time.Second)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, a)

	case http.MethodGet:
		list, err := h.app.Auctions.ListAll(r.Context())
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) auctionResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/auctions"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	auctionID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a, err := h.app.Auctions.Get(r.Context(), auctionID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, a)
		return
	}

	switch parts[1] {
	case "bids":
		if len(parts) == 2 {
			switch r.Method {
			case http.MethodPost:
				bidder, ok := requireAccount(w, r)
				if !ok {
					return
				}
				var payload struct {
					Amount decimal.Decimal `json:"amount"`
				}
				if err := decodeJSON(r.Body, &payload); err != nil {
					writeError(w, http.StatusBadRequest, err)
					return
				}
				a, err := h.app.Auctions.Bid(r.Context(), auctionID, bidder, payload.Amount)
				if err != nil {
					writeError(w, errStatus(err), err)
					return
				}
				writeJSON(w, http.StatusOK, a)
			case http.MethodGet:
				bids, err := h.app.Auctions.ListBids(r.Context(), auctionID)
				if err != nil {
					writeError(w, errStatus(err), err)
					return
				}
				writeJSON(w, http.StatusOK, bids)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
			return
		}
		if len(parts) == 3 && r.Method == http.MethodGet {
			amount, err := h.app.Auctions.GetUserBidAmount(r.Context(), auctionID, strings.ToLower(parts[2]))
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"account": strings.ToLower(parts[2]), "cumulative": amount})
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case "withdraw":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		bidder, ok := requireAccount(w, r)
		if !ok {
			return
		}
		amount, err := h.app.Auctions.WithdrawBid(r.Context(), auctionID, bidder)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"withdrawn": amount})

	case "end":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		caller, ok := requireAccount(w, r)
		if !ok {
			return
		}
		a, err := h.app.Auctions.EndAuction(r.Context(), auctionID, caller)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, a)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// contentBlobs uploads and fetches listing metadata documents. Uploads
// return the content id callers pass as contentId / metadataContentId;
// fetches address the blob by id query parameter since content ids contain
// slashes.
func (h *handler) contentBlobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if _, ok := requireAccount(w, r); !ok {
			return
		}
		var payload struct {
			Filename string          `json:"filename"`
			Data     json.RawMessage `json:"data"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(payload.Data) == 0 {
			writeError(w, http.StatusBadRequest, errors.New("data is required"))
			return
		}
		id, err := h.app.Content.Put(r.Context(), payload.Filename, payload.Data)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"contentId": id})

	case http.MethodGet:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, errors.New("id query parameter is required"))
			return
		}
		data, err := h.app.Content.Get(r.Context(), id)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) discoveryListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	listings, err := h.app.Discovery.Listings(r.Context())
	if err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *handler) discoveryAuctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	open, err := h.app.Discovery.OpenAuctions(r.Context())
	if err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, open)
}

func (h *handler) adminFees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.Admin.Fees())

	case http.MethodPut:
		caller, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var fees admin.Fees
		if err := decodeJSON(r.Body, &fees); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.app.Admin.SetFees(caller, fees); err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, h.app.Admin.Fees())

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// errStatus maps service errors onto HTTP statuses: validation 400,
// missing funds 402, authorization 403, unknown entity 404, lifecycle
// conflicts 409, oracle outage 503.
func errStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, rates.ErrRateUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, market.ErrNotSeller),
		errors.Is(err, market.ErrNotBuyer),
		errors.Is(err, market.ErrOwnListing),
		errors.Is(err, stores.ErrNotOwner),
		errors.Is(err, stores.ErrNotBuyer),
		errors.Is(err, auctions.ErrNotSeller),
		errors.Is(err, auctions.ErrOwnAuction),
		errors.Is(err, admin.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, market.ErrInvalidListing),
		errors.Is(err, stores.ErrInvalidProduct),
		errors.Is(err, stores.ErrInvalidQuantity),
		errors.Is(err, stores.ErrInvalidRating),
		errors.Is(err, auctions.ErrInvalidAuction),
		errors.Is(err, admin.ErrInvalidFee),
		errors.Is(err, content.ErrInvalidContentID),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrNotForSale),
		errors.Is(err, market.ErrNotPending),
		errors.Is(err, market.ErrNotSent),
		errors.Is(err, market.ErrNotCancellable),
		errors.Is(err, stores.ErrStoreExists),
		errors.Is(err, stores.ErrProductHasOrders),
		errors.Is(err, stores.ErrInsufficientStock),
		errors.Is(err, stores.ErrOrderNotPending),
		errors.Is(err, stores.ErrOrderNotSent),
		errors.Is(err, stores.ErrOrderNotCancellable),
		errors.Is(err, stores.ErrOrderNotCompleted),
		errors.Is(err, stores.ErrAlreadyReviewed),
		errors.Is(err, auctions.ErrAuctionClosed),
		errors.Is(err, auctions.ErrBidTooLow),
		errors.Is(err, auctions.ErrCannotWithdrawLeadingBid),
		errors.Is(err, auctions.ErrTooEarly),
		errors.Is(err, escrow.ErrAlreadySettled),
		errors.Is(err, escrow.ErrNotWithdrawable),
		errors.Is(err, escrow.ErrNoHold),
		errors.Is(err, escrow.ErrBidTooLow),
		errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
