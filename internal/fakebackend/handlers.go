package fakebackend

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-client/internal/models"
)

// Router wires the REST contract the client consumes.
func (b *Backend) Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), b.countMiddleware(), b.authMiddleware())

	r.GET("/conversations/", b.listConversations)
	r.GET("/conversations/:id/", b.getConversation)
	r.POST("/conversations/:id/send_message/", b.sendMessage)
	r.POST("/send_message_to_user/", b.sendMessageToUser)
	r.GET("/search-users/", b.searchUsers)
	r.GET("/profile/", b.getProfile)
	return r
}

func (b *Backend) listConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	b.mu.Lock()
	defer b.mu.Unlock()
	resp := []models.Conversation{}
	for _, conv := range b.conversations {
		if conv.HasParticipant(userID) {
			summary := *conv
			summary.Messages = nil
			resp = append(resp, summary)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (b *Backend) getConversation(c *gin.Context) {
	conv, ok := b.memberConversation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (b *Backend) sendMessage(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	var msg models.OutgoingMessage
	if text, ok := req["text"].(string); ok && text != "" {
		msg.Text = &text
	}
	if image, ok := req["image_url"].(string); ok && image != "" {
		msg.ImageURL = &image
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid conversation id"})
		return
	}
	userID := c.GetInt("userID")

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSend = req
	conv := b.findLocked(id)
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Non autorisé"})
		return
	}
	c.JSON(http.StatusCreated, b.appendLocked(conv, userID, msg))
}

func (b *Backend) sendMessageToUser(c *gin.Context) {
	var req struct {
		RecipientID int    `json:"recipient_id" binding:"required"`
		Text        string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	userID := c.GetInt("userID")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[req.RecipientID]; !ok || req.RecipientID == userID {
		c.JSON(http.StatusNotFound, gin.H{"detail": "recipient not found"})
		return
	}

	var conv *models.Conversation
	for _, existing := range b.conversations {
		if existing.HasParticipant(userID) && existing.HasParticipant(req.RecipientID) {
			conv = existing
			break
		}
	}
	if conv == nil {
		conv = &models.Conversation{
			ID:           b.nextConvID,
			Participants: []models.User{b.users[userID], b.users[req.RecipientID]},
		}
		b.nextConvID++
		b.conversations = append([]*models.Conversation{conv}, b.conversations...)
	}
	b.appendLocked(conv, userID, models.NewOutgoingMessage(req.Text, ""))
	c.JSON(http.StatusCreated, models.StartedConversation{ConversationID: conv.ID})
}

func (b *Backend) searchUsers(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.searchLocked(c.Query("q")))
}

func (b *Backend) getProfile(c *gin.Context) {
	userID := c.GetInt("userID")

	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, models.Profile{DisplayName: b.users[userID].DisplayName})
}

func (b *Backend) memberConversation(c *gin.Context) (models.Conversation, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid conversation id"})
		return models.Conversation{}, false
	}
	userID := c.GetInt("userID")

	b.mu.Lock()
	defer b.mu.Unlock()
	conv := b.findLocked(id)
	if conv == nil || !conv.HasParticipant(userID) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return models.Conversation{}, false
	}
	snapshot := *conv
	snapshot.Messages = append([]models.Message(nil), conv.Messages...)
	return snapshot, true
}
