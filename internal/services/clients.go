package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/policy"
	"github.com/diewo77/solodesk/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClientInput carries the writable client fields. Nil fields are left untouched on update.
type ClientInput struct {
	Name          *string              `json:"name"`
	Email         *string              `json:"email"`
	Phone         *string              `json:"phone"`
	Company       *string              `json:"company"`
	Address       *string              `json:"address"`
	Type          *string              `json:"type"`
	Status        *string              `json:"status"`
	Tags          *[]string            `json:"tags"`
	Links         *[]models.Link       `json:"links"`
	Attachments   *[]models.Attachment `json:"attachments"`
	LastContacted *time.Time           `json:"lastContacted"`
}

// ClientFilter holds the list query parameters.
type ClientFilter struct {
	Search    string
	Status    string
	Type      string
	Tag       string
	SortBy    string
	SortOrder string
}

var clientSortColumns = map[string]string{
	"name":          "name",
	"email":         "email",
	"company":       "company",
	"status":        "status",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"lastContacted": "last_contacted",
}

type ClientService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Now           Clock
}

func NewClientService(db *gorm.DB, notifications *NotificationService) *ClientService {
	return &ClientService{DB: db, Notifications: notifications, Now: utcNow}
}

func (in ClientInput) apply(c *models.Client) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		c.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Company != nil {
		c.Company = *in.Company
	}
	if in.Address != nil {
		c.Address = *in.Address
	}
	if in.Type != nil {
		c.Type = models.ClientType(*in.Type)
	}
	if in.Status != nil {
		c.Status = models.ClientStatus(*in.Status)
	}
	if in.Tags != nil {
		c.Tags = datatypes.JSONSlice[string](*in.Tags)
	}
	if in.Links != nil {
		c.Links = datatypes.JSONSlice[models.Link](*in.Links)
	}
	if in.Attachments != nil {
		c.Attachments = datatypes.JSONSlice[models.Attachment](*in.Attachments)
	}
	if in.LastContacted != nil {
		t := in.LastContacted.UTC()
		c.LastContacted = &t
	}
}

func validateClient(c *models.Client) validation.Violations {
	v := make(validation.Violations)
	validation.Required("name", c.Name, v)
	validation.Required("email", c.Email, v)
	validation.Email("email", c.Email, v)
	validation.OneOf("type", string(c.Type), models.ClientTypes, v)
	validation.OneOf("status", string(c.Status), models.ClientStatuses, v)
	for i, tag := range c.Tags {
		validation.OneOf(fmt.Sprintf("tags[%d]", i), tag, models.ClientTags, v)
	}
	for i, l := range c.Links {
		validation.Required(fmt.Sprintf("links[%d].title", i), l.Title, v)
		validation.Required(fmt.Sprintf("links[%d].url", i), l.URL, v)
		validation.URL(fmt.Sprintf("links[%d].url", i), l.URL, v)
	}
	return v
}

func (s *ClientService) emailTaken(tx *gorm.DB, userID uint, email string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.Client{}).Where("user_id = ? AND email = ?", userID, email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Create validates and stores a new client, then emits client_added.
func (s *ClientService) Create(ctx context.Context, userID uint, in ClientInput) (*models.Client, error) {
	c := models.Client{UserID: userID}
	in.apply(&c)
	if v := validateClient(&c); !v.Empty() {
		return nil, apperr.Invalid("Invalid client", v)
	}
	tx := s.DB.WithContext(ctx)
	taken, err := s.emailTaken(tx, userID, c.Email, 0)
	if err != nil {
		return nil, apperr.Dependency("failed to check client email", err)
	}
	if taken {
		return nil, apperr.Conflict("A client with this email already exists")
	}
	if err := tx.Create(&c).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("A client with this email already exists")
		}
		return nil, apperr.Dependency("failed to create client", err)
	}
	if s.Notifications != nil {
		err := s.Notifications.Notify(ctx, &models.Notification{
			UserID:        userID,
			Type:          models.NotificationClientAdded,
			Title:         "New client added",
			Message:       fmt.Sprintf("%s was added to your clients", c.Name),
			RelatedEntity: models.EntityRef{Type: models.EntityClient, ID: c.ID},
			Priority:      models.NotificationPriorityLow,
		})
		if err != nil {
			log.Printf("[notifications] client_added for client %d not stored: %v", c.ID, err)
		}
	}
	return &c, nil
}

// Get loads one client of the owner.
func (s *ClientService) Get(ctx context.Context, userID, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.DB.WithContext(ctx).Scopes(policy.ByIDOwnedBy(id, userID)).First(&c).Error; err != nil {
		return nil, lookupErr(err, "Client not found")
	}
	return &c, nil
}

// List returns the owner's clients matching f.
func (s *ClientService) List(ctx context.Context, userID uint, f ClientFilter) ([]models.Client, error) {
	q := s.DB.WithContext(ctx).Scopes(policy.OwnedBy(userID))
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", p, p, p)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Tag != "" {
		q = q.Where("CAST(tags AS TEXT) LIKE ?", `%"`+f.Tag+`"%`)
	}
	col, ok := clientSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	clients := []models.Client{}
	if err := q.Order(col + " " + sortDirection(f.SortOrder)).Order("id").Find(&clients).Error; err != nil {
		return nil, apperr.Dependency("failed to list clients", err)
	}
	return clients, nil
}

// Update applies in to an owned client. Changing the email re-checks uniqueness.
func (s *ClientService) Update(ctx context.Context, userID, id uint, in ClientInput) (*models.Client, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	if v := validateClient(c); !v.Empty() {
		return nil, apperr.Invalid("Invalid client", v)
	}
	tx := s.DB.WithContext(ctx)
	taken, err := s.emailTaken(tx, userID, c.Email, c.ID)
	if err != nil {
		return nil, apperr.Dependency("failed to check client email", err)
	}
	if taken {
		return nil, apperr.Conflict("A client with this email already exists")
	}
	if err := tx.Save(c).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("A client with this email already exists")
		}
		return nil, apperr.Dependency("failed to update client", err)
	}
	return c, nil
}

// Delete hard-deletes an owned client. Projects and receipts keep their client id.
func (s *ClientService) Delete(ctx context.Context, userID, id uint) error {
	res := s.DB.WithContext(ctx).Scopes(policy.ByIDOwnedBy(id, userID)).Delete(&models.Client{})
	if res.Error != nil {
		return apperr.Dependency("failed to delete client", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Client not found")
	}
	return nil
}

// AddNote appends a note to the client's ordered notes list.
func (s *ClientService) AddNote(ctx context.Context, userID, id uint, content string) (*models.Client, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Invalid("Note content is required", validation.Violations{"content": "required"})
	}
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	c.Notes = append(c.Notes, models.Note{Content: content, CreatedAt: s.Now()})
	if err := s.DB.WithContext(ctx).Model(c).UpdateColumn("notes", c.Notes).Error; err != nil {
		return nil, apperr.Dependency("failed to add note", err)
	}
	return c, nil
}
