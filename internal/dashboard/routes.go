package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parleybot/parley/internal/store"
	"github.com/parleybot/parley/internal/usage"
)

// newRouter wires the status routes onto a fresh Gin engine.
func newRouter(st store.Store, calc *usage.Calculator) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handleHealth())
	router.GET("/api/users", handleUsers(st))
	router.GET("/api/usage", handleUsage(st, calc))

	return router
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// UserRow is one registered user in the /api/users listing.
type UserRow struct {
	ID              uint      `json:"id"`
	Platform        string    `json:"platform"`
	Username        string    `json:"username"`
	Mode            string    `json:"mode"`
	Model           string    `json:"model"`
	LastInteraction time.Time `json:"last_interaction"`
}

func handleUsers(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := st.AllUsers()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		rows := make([]UserRow, len(users))
		for i, u := range users {
			rows[i] = UserRow{
				ID:              u.ID,
				Platform:        u.Platform,
				Username:        u.Username,
				Mode:            u.CurrentMode,
				Model:           u.CurrentModel,
				LastInteraction: u.LastInteractionAt,
			}
		}
		c.JSON(http.StatusOK, gin.H{"users": rows})
	}
}

// ModelRow is one per-model token counter in the /api/usage view.
type ModelRow struct {
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// UsageRow is the spend breakdown for one user.
type UsageRow struct {
	UserID             uint       `json:"user_id"`
	Username           string     `json:"username"`
	Platform           string     `json:"platform"`
	Models             []ModelRow `json:"models"`
	GeneratedImages    int64      `json:"generated_images"`
	TranscribedSeconds float64    `json:"transcribed_seconds"`
	TotalUSD           float64    `json:"total_usd"`
}

func handleUsage(st store.Store, calc *usage.Calculator) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := st.AllUsers()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		rows := make([]UsageRow, 0, len(users))
		var grand float64
		for _, u := range users {
			counters, err := st.Usage(u.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			modelRows := make([]ModelRow, len(counters))
			for i, m := range counters {
				modelRows[i] = ModelRow{Model: m.Model, InputTokens: m.InputTokens, OutputTokens: m.OutputTokens}
			}
			total := calc.Total(counters, u.NGeneratedImages, u.NTranscribedSeconds)
			grand += total
			rows = append(rows, UsageRow{
				UserID:             u.ID,
				Username:           u.Username,
				Platform:           u.Platform,
				Models:             modelRows,
				GeneratedImages:    u.NGeneratedImages,
				TranscribedSeconds: u.NTranscribedSeconds,
				TotalUSD:           total,
			})
		}
		c.JSON(http.StatusOK, gin.H{"usage": rows, "grand_total_usd": grand})
	}
}
