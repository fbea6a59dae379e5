package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *App) listEventsHandler(c *gin.Context) {
	events, err := a.store.ListEvents(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}

	filtered := filterEvents(events, catalogFilterFromRequest(c))
	page, pagination := paginate(filtered, parseAdminPage(c.Query("page")), parseAdminPerPage(c.Query("per_page")))

	views := make([]EventView, 0, len(page))
	for _, e := range page {
		views = append(views, a.eventView(e))
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "pagination": pagination})
}

func (a *App) getEventHandler(c *gin.Context) {
	id, err := catalogID(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	event, err := a.store.GetEvent(c.Request.Context(), id)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": a.eventView(*event),
		"form": a.eventFormView(*event),
	})
}

func (a *App) createEventHandler(c *gin.Context) {
	form, ok := bindEventForm(c)
	if !ok {
		return
	}

	rec := a.eventRecord(form)
	if err := a.store.CreateEvent(c.Request.Context(), rec); err != nil {
		writeAPIError(c, err)
		return
	}
	a.logCatalogWrite(c, "event created", "", rec.Title)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rec})
}

func (a *App) updateEventHandler(c *gin.Context) {
	id, err := catalogID(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	form, ok := bindEventForm(c)
	if !ok {
		return
	}

	rec := a.eventRecord(form)
	if err := a.store.UpdateEvent(c.Request.Context(), id, rec); err != nil {
		writeAPIError(c, err)
		return
	}
	a.logCatalogWrite(c, "event updated", id, rec.Title)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (a *App) deleteEventHandler(c *gin.Context) {
	id, err := catalogID(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if err := a.store.DeleteEvent(c.Request.Context(), id); err != nil {
		writeAPIError(c, err)
		return
	}
	a.logCatalogWrite(c, "event deleted", id, "")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func bindEventForm(c *gin.Context) (EventForm, bool) {
	var form EventForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Invalid event payload"})
		return form, false
	}
	if err := validateEventForm(form); err != nil {
		writeAPIError(c, err)
		return form, false
	}
	return form, true
}
