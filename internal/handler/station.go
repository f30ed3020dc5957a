package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/iurnickita/bistrobonus/internal/model"
	"github.com/iurnickita/bistrobonus/internal/station"
)

type StationJSONBody struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Color        string   `json:"color"`
	Categories   []string `json:"categories"`
	Enabled      bool     `json:"enabled"`
	DisplayOrder int      `json:"displayOrder"`
}

func stationFromModel(st model.Station) StationJSONBody {
	return StationJSONBody{
		ID:           st.ID,
		Name:         st.Name,
		Color:        st.Color,
		Categories:   st.Categories,
		Enabled:      st.Enabled,
		DisplayOrder: st.DisplayOrder,
	}
}

func (h *handler) GetStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.station.Stations(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := make([]StationJSONBody, 0, len(stations))
	for _, st := range stations {
		response = append(response, stationFromModel(st))
	}
	h.writeJSON(w, response)
}

type PostStationJSONRequest struct {
	Name         string   `json:"name"`
	Color        string   `json:"color"`
	Categories   []string `json:"categories"`
	Enabled      *bool    `json:"enabled"`
	DisplayOrder int      `json:"displayOrder"`
}

func (h *handler) PostStation(w http.ResponseWriter, r *http.Request) {
	var stationJSON PostStationJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&stationJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	enabled := true
	if stationJSON.Enabled != nil {
		enabled = *stationJSON.Enabled
	}
	st, err := h.station.AddStation(r.Context(), model.Station{
		Name:         stationJSON.Name,
		Color:        stationJSON.Color,
		Categories:   stationJSON.Categories,
		Enabled:      enabled,
		DisplayOrder: stationJSON.DisplayOrder,
	})
	if err != nil {
		switch err {
		case station.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, stationFromModel(st))
}

type PutStationJSONRequest struct {
	Name         *string   `json:"name"`
	Color        *string   `json:"color"`
	Categories   *[]string `json:"categories"`
	Enabled      *bool     `json:"enabled"`
	DisplayOrder *int      `json:"displayOrder"`
}

func (h *handler) PutStation(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("stationId")

	var patchJSON PutStationJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&patchJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := h.station.UpdateStation(r.Context(), stationID, station.StationPatch{
		Name:         patchJSON.Name,
		Color:        patchJSON.Color,
		Categories:   patchJSON.Categories,
		Enabled:      patchJSON.Enabled,
		DisplayOrder: patchJSON.DisplayOrder,
	})
	if err != nil {
		switch err {
		case station.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, stationFromModel(st))
}

func (h *handler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("stationId")

	err := h.station.RemoveStation(r.Context(), stationID)
	if err != nil {
		switch err {
		case station.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

type PostStationStatsJSONRequest struct {
	Orders []OrderJSONBody `json:"orders"`
}

type PostStationStatsJSONResponse struct {
	TotalOrders        int            `json:"totalOrders"`
	ActiveOrders       int            `json:"activeOrders"`
	StatusCounts       map[string]int `json:"statusCounts"`
	AvgPrepTimeMinutes float64        `json:"avgPrepTimeMinutes"`
}

func (h *handler) PostStationStats(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("stationId")

	var statsJSON PostStationStatsJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&statsJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.station.StationStats(r.Context(), stationID, ordersToModel(statsJSON.Orders))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, PostStationStatsJSONResponse{
		TotalOrders:        stats.TotalOrders,
		ActiveOrders:       stats.ActiveOrders,
		StatusCounts:       stats.StatusCounts,
		AvgPrepTimeMinutes: stats.AvgPrepTimeMinutes,
	})
}

type PostRouteJSONResponse struct {
	StationID *string `json:"stationId"`
}

func (h *handler) PostRoute(w http.ResponseWriter, r *http.Request) {
	var orderJSON OrderJSONBody
	if err := json.NewDecoder(r.Body).Decode(&orderJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stationID, err := h.station.AutoAssign(r.Context(), orderJSON.toModel())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// null - заказ не распределен
	var response PostRouteJSONResponse
	if stationID != "" {
		response.StationID = &stationID
	}
	h.writeJSON(w, response)
}

type PostAssignJSONRequest struct {
	OrderID   int    `json:"orderId"`
	StationID string `json:"stationId"`
	Priority  int    `json:"priority"`
}

func (h *handler) PostAssign(w http.ResponseWriter, r *http.Request) {
	var assignJSON PostAssignJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&assignJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.station.Assign(r.Context(), assignJSON.OrderID, assignJSON.StationID, assignJSON.Priority)
	if err != nil {
		switch err {
		case station.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case station.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) DeleteAssign(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(r.PathValue("orderId"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.station.Unassign(r.Context(), orderID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type PostUnassignedJSONRequest struct {
	Orders []OrderJSONBody `json:"orders"`
}

type PostUnassignedJSONResponse struct {
	Orders []OrderJSONBody `json:"orders"`
}

func (h *handler) PostUnassigned(w http.ResponseWriter, r *http.Request) {
	var unassignedJSON PostUnassignedJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&unassignedJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orders, err := h.station.UnassignedOrders(r.Context(), ordersToModel(unassignedJSON.Orders))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, PostUnassignedJSONResponse{Orders: ordersFromModel(orders)})
}
