package server

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopdesk-dev/shopdesk/internal/models"
	"github.com/shopdesk-dev/shopdesk/internal/resources"
)

const storesResource = "stores"

// registerRecordRoutes mounts CRUD handlers for every registered resource
func (s *Server) registerRecordRoutes(rg *gin.RouterGroup) {
	for _, r := range resources.All() {
		if r.Supports(resources.OpList) {
			rg.GET(r.Path, s.listRecords(r))
		}
		if r.Supports(resources.OpGet) {
			rg.GET(r.Path+"/:id", s.getRecord(r))
		}
		if r.Supports(resources.OpCreate) {
			rg.POST(r.Path, s.createRecord(r, false))
		}
		if r.Supports(resources.OpUpdate) {
			rg.PATCH(r.Path+"/:id", s.updateRecord(r))
			rg.PUT(r.Path+"/:id", s.updateRecord(r))
		}
		if r.Supports(resources.OpDelete) {
			rg.DELETE(r.Path+"/:id", s.deleteRecord(r))
		}

		// Store-scoped paths share the :id wildcard with the item routes
		if r.StoreListPath != "" {
			rg.GET(storeRoute(r.StoreListPath), s.listStoreRecords(r))
		}
		if r.StoreCreatePath != "" {
			rg.POST(storeRoute(r.StoreCreatePath), s.createRecord(r, true))
		}
	}
}

func storeRoute(pattern string) string {
	return strings.Replace(pattern, "%s", ":id", 1)
}

func (s *Server) findStore(ownerID, storeID string) (*models.Record, error) {
	var store models.Record
	err := s.db.
		Where("id = ? AND resource = ? AND owner_id = ?", storeID, storesResource, ownerID).
		First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (s *Server) findRecord(r resources.Resource, ownerID, id string) (*models.Record, error) {
	var record models.Record
	err := s.db.
		Where("id = ? AND resource = ? AND owner_id = ?", id, r.Name, ownerID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Server) respondRecords(c *gin.Context, records []models.Record, status string) {
	views := make([]map[string]any, 0, len(records))
	for i := range records {
		view, err := records[i].View()
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to decode record")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if status != "" && view["status"] != status {
			continue
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i]["id"].(string) < views[j]["id"].(string)
	})

	c.JSON(http.StatusOK, views)
}

func (s *Server) listRecords(r resources.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, _ := GetSessionData(c)

		var records []models.Record
		query := s.db.Where("resource = ? AND owner_id = ?", r.Name, sessionData.UserID)
		if storeID := c.Query("storeId"); storeID != "" {
			query = query.Where("store_id = ?", storeID)
		}
		if err := query.Find(&records).Error; err != nil {
			s.logger.Error().Err(err).Str("resource", r.Name).Msg("Failed to list records")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		s.respondRecords(c, records, "")
	}
}

func (s *Server) listStoreRecords(r resources.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, _ := GetSessionData(c)
		storeID := c.Param("id")

		status := c.Query("status")
		if status != "" {
			if _, _, err := r.ListPath(storeID, status); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if _, err := s.findStore(sessionData.UserID, storeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
				return
			}
			s.logger.Error().Err(err).Msg("Failed to find store")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		var records []models.Record
		if err := s.db.
			Where("resource = ? AND owner_id = ? AND store_id = ?", r.Name, sessionData.UserID, storeID).
			Find(&records).Error; err != nil {
			s.logger.Error().Err(err).Str("resource", r.Name).Msg("Failed to list records")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		s.respondRecords(c, records, status)
	}
}

func (s *Server) getRecord(r resources.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, _ := GetSessionData(c)

		record, err := s.findRecord(r, sessionData.UserID, c.Param("id"))
		if err != nil {
			s.recordLookupError(c, r, err)
			return
		}

		s.respondRecord(c, http.StatusOK, record)
	}
}

// createRecord stores a new record. With inStore the store comes from the path.
func (s *Server) createRecord(r resources.Resource, inStore bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, _ := GetSessionData(c)

		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil || payload == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object"})
			return
		}
		if inStore {
			payload["storeId"] = c.Param("id")
		}

		if err := r.ValidateCreate(payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		record := models.Record{Resource: r.Name, OwnerID: sessionData.UserID}
		if !s.assignStore(c, &record, sessionData.UserID, payload) {
			return
		}
		if err := record.SetFields(payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := s.db.Create(&record).Error; err != nil {
			s.logger.Error().Err(err).Str("resource", r.Name).Msg("Failed to create record")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create " + r.Singular})
			return
		}

		s.logger.Info().Str("resource", r.Name).Str("id", record.ID).Msg("Record created")
		s.respondRecord(c, http.StatusCreated, &record)
	}
}

func (s *Server) updateRecord(r resources.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, _ := GetSessionData(c)

		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil || payload == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object"})
			return
		}

		record, err := s.findRecord(r, sessionData.UserID, c.Param("id"))
		if err != nil {
			s.recordLookupError(c, r, err)
			return
		}

		if _, moved := payload["storeId"]; moved && !s.assignStore(c, record, sessionData.UserID, payload) {
			return
		}

		fields, err := record.Fields()
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to decode record")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		for k, v := range payload {
			if v == nil {
				delete(fields, k)
				continue
			}
			fields[k] = v
		}
		if err := record.SetFields(fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := s.db.Save(record).Error; err != nil {
			s.logger.Error().Err(err).Str("resource", r.Name).Msg("Failed to update record")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update " + r.Singular})
			return
		}

		s.respondRecord(c, http.StatusOK, record)
	}
}

func (s *Server) deleteRecord(r resources.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, _ := GetSessionData(c)

		record, err := s.findRecord(r, sessionData.UserID, c.Param("id"))
		if err != nil {
			s.recordLookupError(c, r, err)
			return
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if r.Name == storesResource {
				// A store takes its records with it
				if err := tx.Where("owner_id = ? AND store_id = ?", sessionData.UserID, record.ID).
					Delete(&models.Record{}).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.User{}).
					Where("id = ? AND default_store_id = ?", sessionData.UserID, record.ID).
					Update("default_store_id", nil).Error; err != nil {
					return err
				}
			}
			return tx.Delete(record).Error
		})
		if err != nil {
			s.logger.Error().Err(err).Str("resource", r.Name).Msg("Failed to delete record")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete " + r.Singular})
			return
		}

		s.logger.Info().Str("resource", r.Name).Str("id", record.ID).Msg("Record deleted")
		c.JSON(http.StatusOK, gin.H{"message": capitalize(r.Singular) + " deleted"})
	}
}

// assignStore sets record.StoreID from payload["storeId"] after checking the
// caller owns that store. It writes the error response and returns false on failure.
func (s *Server) assignStore(c *gin.Context, record *models.Record, ownerID string, payload map[string]any) bool {
	raw, ok := payload["storeId"]
	if !ok || raw == nil || record.Resource == storesResource {
		return true
	}

	storeID, isString := raw.(string)
	if !isString || storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storeId must be a string"})
		return false
	}

	if _, err := s.findStore(ownerID, storeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return false
		}
		s.logger.Error().Err(err).Msg("Failed to find store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	record.StoreID = storeID
	return true
}

func (s *Server) respondRecord(c *gin.Context, status int, record *models.Record) {
	view, err := record.View()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, view)
}

func (s *Server) recordLookupError(c *gin.Context, r resources.Resource, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": capitalize(r.Singular) + " not found"})
		return
	}
	s.logger.Error().Err(err).Str("resource", r.Name).Msg("Failed to find record")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
