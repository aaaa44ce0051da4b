package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/database"
	"github.com/minpic/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	code := "abc"
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.File{
		{Filename: "1.png", MinioPath: "1.png", FileType: models.FileImage, FileSize: 10, ShortlinkCode: &code},
		{Filename: "2.png", MinioPath: "2.png", FileType: models.FileImage, FileSize: 20},
		{Filename: "3.mp4", MinioPath: "3.mp4", FileType: models.FileVideo, FileSize: 30},
		{Filename: "4.mp3", MinioPath: "4.mp3", FileType: models.FileAudio, FileSize: 40},
		{Filename: "5.mp3", MinioPath: "5.mp3", FileType: models.FileAudio, FileSize: 50},
		{Filename: "6.mp3", MinioPath: "6.mp3", FileType: models.FileAudio, FileSize: 60, ThumbnailData: []byte("x")},
	}
	for i := range rows {
		rows[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	s, err := Build(context.Background(), db)
	require.NoError(t, err)
	assert.EqualValues(t, 6, s.TotalFiles)
	assert.EqualValues(t, 2, s.TotalImages)
	assert.EqualValues(t, 1, s.TotalVideos)
	assert.EqualValues(t, 3, s.TotalAudios)
	assert.EqualValues(t, 210, s.TotalSize)
	assert.EqualValues(t, 1, s.TotalShortlinks)
	require.Len(t, s.RecentFiles, 5)
	assert.Equal(t, "6.mp3", s.RecentFiles[0].Filename)
	assert.Empty(t, s.RecentFiles[0].ThumbnailData)
}

func TestStatsEndpointEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := database.OpenMemory()
	require.NoError(t, err)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), db, func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var s Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Zero(t, s.TotalFiles)
	assert.NotNil(t, s.RecentFiles)
	assert.Contains(t, w.Body.String(), `"recentFiles":[]`)
}
