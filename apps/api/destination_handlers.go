package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *App) registerCatalogRoutes(group *gin.RouterGroup) {
	group.GET("/destinations", a.listDestinationsHandler)
	group.GET("/destinations/:id", a.getDestinationHandler)
	group.POST("/destinations", a.createDestinationHandler)
	group.PUT("/destinations/:id", a.updateDestinationHandler)
	group.DELETE("/destinations/:id", a.deleteDestinationHandler)

	group.GET("/events", a.listEventsHandler)
	group.GET("/events/:id", a.getEventHandler)
	group.POST("/events", a.createEventHandler)
	group.PUT("/events/:id", a.updateEventHandler)
	group.DELETE("/events/:id", a.deleteEventHandler)
}

func catalogFilterFromRequest(c *gin.Context) catalogFilter {
	return catalogFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
	}
}

func catalogID(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return "", &apiError{Status: http.StatusBadRequest, Code: "invalid_id", Message: "Invalid ID"}
	}
	return id, nil
}

func (a *App) listDestinationsHandler(c *gin.Context) {
	destinations, err := a.store.ListDestinations(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}

	filtered := filterDestinations(destinations, catalogFilterFromRequest(c))
	page, pagination := paginate(filtered, parseAdminPage(c.Query("page")), parseAdminPerPage(c.Query("per_page")))

	views := make([]DestinationView, 0, len(page))
	for _, d := range page {
		views = append(views, a.destinationView(d))
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "pagination": pagination})
}

func (a *App) getDestinationHandler(c *gin.Context) {
	id, err := catalogID(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	destination, err := a.findDestination(c.Request.Context(), id)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": a.destinationView(*destination),
		"form": a.destinationFormView(*destination),
	})
}

func (a *App) createDestinationHandler(c *gin.Context) {
	var form DestinationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Invalid destination payload"})
		return
	}
	if err := validateDestinationForm(form); err != nil {
		writeAPIError(c, err)
		return
	}

	rec := a.destinationRecord(form, nil)
	if err := a.store.CreateDestination(c.Request.Context(), rec); err != nil {
		writeAPIError(c, err)
		return
	}
	a.logCatalogWrite(c, "destination created", "", rec.Name)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rec})
}

func (a *App) updateDestinationHandler(c *gin.Context) {
	id, err := catalogID(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	var form DestinationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Invalid destination payload"})
		return
	}
	if err := validateDestinationForm(form); err != nil {
		writeAPIError(c, err)
		return
	}

	existing, err := a.findDestination(c.Request.Context(), id)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	rec := a.destinationRecord(form, existing)
	if err := a.store.UpdateDestination(c.Request.Context(), id, rec); err != nil {
		writeAPIError(c, err)
		return
	}
	a.logCatalogWrite(c, "destination updated", id, rec.Name)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (a *App) deleteDestinationHandler(c *gin.Context) {
	id, err := catalogID(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if err := a.store.DeleteDestination(c.Request.Context(), id); err != nil {
		writeAPIError(c, err)
		return
	}
	a.logCatalogWrite(c, "destination deleted", id, "")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// findDestination looks id up in the full list; the store has no single
// destination endpoint.
func (a *App) findDestination(ctx context.Context, id string) (*Destination, error) {
	destinations, err := a.store.ListDestinations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range destinations {
		if destinations[i].ID.String() == id {
			return &destinations[i], nil
		}
	}
	return nil, errRecordNotFound
}

func (a *App) logCatalogWrite(c *gin.Context, msg, id, name string) {
	session, _ := getAdminSession(c)
	a.log.Info(msg, "id", id, "name", name, "admin", session.Email, "request_id", c.GetString("requestID"))
}
