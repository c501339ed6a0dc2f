package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

// flexID accepts numeric or string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// flexFloat accepts numbers and decimal strings such as "3000.00".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*f = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// flexStrings accepts a list of strings or a comma separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = nil
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*f = out
	return nil
}

// list decodes either a bare array or a paginated {"results": [...]} page.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(b, &page); err != nil {
		return err
	}
	*l = page.Results
	return nil
}

// wireID sends numeric ids as numbers, anything else as a string.
func wireID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type apiUser struct {
	ID             flexID      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	UserType       string      `json:"user_type"`
	Phone          string      `json:"phone"`
	Disability     string      `json:"disability"`
	Skills         flexStrings `json:"skills"`
	ClientType     *string     `json:"client_type"`
	ProfilePicture *string     `json:"profile_picture"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (a *apiUser) role() domain.Role {
	if a.UserType == string(domain.RoleClient) {
		return domain.RoleClient
	}
	return domain.RolePWD
}

func (a *apiUser) toDomain() *domain.User {
	return &domain.User{
		ID:         string(a.ID),
		Username:   a.Username,
		Email:      a.Email,
		Role:       a.role(),
		Phone:      a.Phone,
		Disability: a.Disability,
		Skills:     []string(a.Skills),
		ClientType: domain.ClientType(deref(a.ClientType)),
		Avatar:     deref(a.ProfilePicture),
		Origin:     domain.OriginAPI,
		CreatedAt:  a.CreatedAt,
	}
}

func (a *apiUser) ref() domain.UserRef {
	name := a.Username
	if name == "" {
		name = a.Email
	}
	return domain.UserRef{ID: string(a.ID), Name: name, Role: a.role()}
}

// refs collects directory references from non-nil users.
func refs(users ...*apiUser) []domain.UserRef {
	out := make([]domain.UserRef, 0, len(users))
	for _, u := range users {
		if u != nil && u.ID != "" {
			out = append(out, u.ref())
		}
	}
	return out
}

type authEnvelope struct {
	Message string  `json:"message"`
	User    apiUser `json:"user"`
}

type registerPayload struct {
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	Password        string      `json:"password"`
	PasswordConfirm string      `json:"password_confirm"`
	UserType        domain.Role `json:"user_type"`
	Phone           string      `json:"phone"`
	Disability      string      `json:"disability,omitempty"`
	Skills          []string    `json:"skills,omitempty"`
	ClientType      string      `json:"client_type,omitempty"`
}

type loginPayload struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	UserType domain.Role `json:"user_type,omitempty"`
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

type apiListing struct {
	ID           flexID    `json:"id"`
	Client       *apiUser  `json:"client"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        flexFloat `json:"price"`
	Timeframe    string    `json:"timeframe"`
	Duration     string    `json:"duration"`
	Requirements string    `json:"requirements"`
	Document     *string   `json:"document"`
	Status       string    `json:"status"`
	Views        int       `json:"views"`
	BidCount     int       `json:"bid_count"`
	BookingCount int       `json:"booking_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *apiListing) toDomain(kind domain.ListingKind) domain.Listing {
	l := domain.Listing{
		ID:           string(a.ID),
		Kind:         kind,
		Title:        a.Title,
		Description:  a.Description,
		Price:        float64(a.Price),
		Timeframe:    a.Timeframe,
		Requirements: a.Requirements,
		Status:       domain.ListingStatus(a.Status),
		Views:        a.Views,
		Engagements:  a.BidCount,
		Document:     deref(a.Document),
		Origin:       domain.OriginAPI,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if kind == domain.KindService {
		l.Timeframe = a.Duration
		l.Engagements = a.BookingCount
	}
	if l.Status != domain.StatusClosed {
		l.Status = domain.StatusOpen
	}
	if a.Client != nil {
		l.OwnerID = string(a.Client.ID)
		l.OwnerName = a.Client.ref().Name
	}
	return l
}

type apiBid struct {
	ID        flexID    `json:"id"`
	Gig       flexID    `json:"gig"`
	Bidder    *apiUser  `json:"bidder"`
	Amount    flexFloat `json:"amount"`
	Proposal  string    `json:"proposal"`
	Document  *string   `json:"document"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *apiBid) toDomain(gigID string) *domain.Bid {
	b := &domain.Bid{
		ID:        string(a.ID),
		GigID:     string(a.Gig),
		Amount:    float64(a.Amount),
		Proposal:  a.Proposal,
		Document:  deref(a.Document),
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
	if b.GigID == "" {
		b.GigID = gigID
	}
	if a.Bidder != nil {
		b.BidderID = string(a.Bidder.ID)
	}
	return b
}

type apiBooking struct {
	ID        flexID    `json:"id"`
	Service   flexID    `json:"service"`
	Booker    *apiUser  `json:"booker"`
	Proposal  string    `json:"proposal"`
	Document  *string   `json:"document"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *apiBooking) toDomain(serviceID string) *domain.Booking {
	b := &domain.Booking{
		ID:        string(a.ID),
		ServiceID: string(a.Service),
		Proposal:  a.Proposal,
		Document:  deref(a.Document),
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
	if b.ServiceID == "" {
		b.ServiceID = serviceID
	}
	if a.Booker != nil {
		b.BookerID = string(a.Booker.ID)
	}
	return b
}

// ---------------------------------------------------------------------------
// Feed
// ---------------------------------------------------------------------------

type apiComment struct {
	ID        flexID    `json:"id"`
	Post      flexID    `json:"post"`
	Author    *apiUser  `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *apiComment) toDomain(postID string) domain.Comment {
	c := domain.Comment{
		ID:        string(a.ID),
		PostID:    string(a.Post),
		Text:      a.Text,
		CreatedAt: a.CreatedAt,
	}
	if c.PostID == "" {
		c.PostID = postID
	}
	if a.Author != nil {
		ref := a.Author.ref()
		c.AuthorID, c.AuthorName = ref.ID, ref.Name
	}
	return c
}

type apiPost struct {
	ID            flexID       `json:"id"`
	Author        *apiUser     `json:"author"`
	Text          string       `json:"text"`
	MediaFile     *string      `json:"media_file"`
	MediaType     *string      `json:"media_type"`
	Link          *string      `json:"link"`
	LikeCount     int          `json:"like_count"`
	CommentsCount int          `json:"comments_count"`
	Likes         []apiUser    `json:"likes"`
	Comments      []apiComment `json:"comments"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (a *apiPost) toDomain() domain.Post {
	p := domain.Post{
		ID:           string(a.ID),
		Text:         a.Text,
		MediaURL:     deref(a.MediaFile),
		MediaType:    domain.MediaType(deref(a.MediaType)),
		Link:         deref(a.Link),
		Likes:        make([]string, 0, len(a.Likes)),
		Comments:     make([]domain.Comment, 0, len(a.Comments)),
		CommentCount: a.CommentsCount,
		Origin:       domain.OriginAPI,
		CreatedAt:    a.CreatedAt,
	}
	if p.MediaURL == "" {
		p.MediaType = ""
	}
	if a.Author != nil {
		ref := a.Author.ref()
		p.AuthorID, p.AuthorName = ref.ID, ref.Name
	}
	for i := range a.Likes {
		p.Likes = append(p.Likes, string(a.Likes[i].ID))
	}
	for i := range a.Comments {
		p.Comments = append(p.Comments, a.Comments[i].toDomain(p.ID))
	}
	if p.CommentCount < len(p.Comments) {
		p.CommentCount = len(p.Comments)
	}
	return p
}

// users returns every user referenced by the post.
func (a *apiPost) users() []domain.UserRef {
	us := []*apiUser{a.Author}
	for i := range a.Likes {
		us = append(us, &a.Likes[i])
	}
	for i := range a.Comments {
		us = append(us, a.Comments[i].Author)
	}
	return refs(us...)
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

type apiMessage struct {
	ID        flexID    `json:"id"`
	Sender    *apiUser  `json:"sender"`
	Recipient *apiUser  `json:"recipient"`
	Text      string    `json:"text"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *apiMessage) toDomain() domain.Message {
	m := domain.Message{
		ID:     string(a.ID),
		Text:   a.Text,
		Read:   a.IsRead,
		Origin: domain.OriginAPI,
		SentAt: a.CreatedAt,
	}
	if a.Sender != nil {
		m.SenderID = string(a.Sender.ID)
	}
	if a.Recipient != nil {
		m.RecipientID = string(a.Recipient.ID)
	}
	return m
}

type apiConversation struct {
	User        apiUser     `json:"user"`
	LastMessage *apiMessage `json:"last_message"`
	UnreadCount int         `json:"unread_count"`
}

func (a *apiConversation) toDomain() domain.ConversationSummary {
	s := domain.ConversationSummary{
		Peer:   a.User.ref(),
		Unread: a.UnreadCount,
	}
	if a.LastMessage != nil {
		m := a.LastMessage.toDomain()
		s.LastMessage = &m
		s.UpdatedAt = m.SentAt
	}
	return s
}
