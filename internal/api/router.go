package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lemon8866/hotboard/internal/model"
	"github.com/lemon8866/hotboard/internal/processor"
	"github.com/lemon8866/hotboard/internal/query"
	"github.com/lemon8866/hotboard/internal/scheduler"
	"github.com/lemon8866/hotboard/internal/snapshot"
	"github.com/lemon8866/hotboard/internal/storage"
)

type Server struct {
	registry  *processor.Registry
	snapshots *snapshot.Store
	sched     *scheduler.Scheduler
	archive   *storage.Store
}

func NewServer(reg *processor.Registry, snaps *snapshot.Store, sched *scheduler.Scheduler, archive *storage.Store) *Server {
	return &Server{
		registry:  reg,
		snapshots: snaps,
		sched:     sched,
		archive:   archive,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/boards", s.listBoards)
		v1.GET("/boards/:source/:category", s.getBoard)
		v1.GET("/boards/:source/:category/export", s.exportBoard)
		v1.POST("/boards/:source/:category/refresh", s.refreshBoard)
		v1.GET("/items", s.listItems)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listBoards(c *gin.Context) {
	boards := make([]gin.H, 0, s.registry.Len())
	for _, a := range s.registry.All() {
		meta := gin.H{
			"source":   a.Source(),
			"category": a.Category(),
			"ready":    false,
		}
		if latest := s.snapshots.Latest(a.Source(), a.Category()); latest != nil {
			meta["ready"] = true
			meta["items"] = len(latest.Items)
			meta["seq"] = latest.Seq
			meta["fetched_at"] = latest.FetchedAt
		}
		boards = append(boards, meta)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    boards,
	})
}

// boardItems 跑一遍查询管道：搜索、标签、热度阈值、排序。分页留给调用方
func (s *Server) boardItems(c *gin.Context, latest *model.Listing) ([]model.Item, bool) {
	items := latest.Items
	if kw := c.Query("q"); kw != "" {
		items = query.Search(items, kw)
	}
	if tag := c.Query("tag"); tag != "" {
		items = query.GroupByTag(items)[model.TagKind(tag)]
	}
	if raw := c.Query("min_score"); raw != "" {
		min, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "bad_request",
				"message": "min_score must be an integer",
			})
			return nil, false
		}
		items = query.FilterByThreshold(items, query.FieldScore, min)
	}
	if field := c.Query("sort"); field != "" {
		desc := c.DefaultQuery("desc", "true") != "false"
		items = query.SortBy(items, field, desc)
	}
	return items, true
}

func (s *Server) getBoard(c *gin.Context) {
	source := c.Param("source")
	category := c.Param("category")
	if _, ok := s.registry.Get(source, category); !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "unknown_board", "message": "unknown board"})
		return
	}

	latest := s.snapshots.Latest(source, category)
	if latest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "cold",
			"message": "no snapshot yet, try again shortly",
		})
		return
	}

	items, ok := s.boardItems(c, latest)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "0"))
	if err != nil || size < 0 {
		size = 0
	}
	window, totalPage := query.Paginate(items, page, size)

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data": gin.H{
			"source":            latest.Source,
			"category":          latest.Category,
			"seq":               latest.Seq,
			"fetched_at":        latest.FetchedAt,
			"last_list_time":    latest.LastListTime,
			"next_refresh_time": latest.NextRefreshTime,
			"total":             len(items),
			"page":              page,
			"total_page":        totalPage,
			"items":             window,
		},
	})
}

func (s *Server) exportBoard(c *gin.Context) {
	source := c.Param("source")
	category := c.Param("category")
	if _, ok := s.registry.Get(source, category); !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "unknown_board", "message": "unknown board"})
		return
	}

	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": "format must be json or csv"})
		return
	}

	latest := s.snapshots.Latest(source, category)
	if latest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "cold",
			"message": "no snapshot yet, try again shortly",
		})
		return
	}

	items, ok := s.boardItems(c, latest)
	if !ok {
		return
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "csv":
		data, err = query.ExportCSV(items)
		contentType = "text/csv; charset=utf-8"
	default:
		data, err = query.ExportJSON(items)
		contentType = "application/json; charset=utf-8"
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "internal server error"})
		return
	}

	filename := fmt.Sprintf("hot_%s_%s_%s.%s", source, category, latest.FetchedAt.Format("20060102_150405"), format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) refreshBoard(c *gin.Context) {
	source := c.Param("source")
	category := c.Param("category")
	if s.sched == nil || !s.sched.Has(source, category) {
		c.JSON(http.StatusNotFound, gin.H{"code": "unknown_board", "message": "unknown board"})
		return
	}

	// 同步跑一轮，正在采集时由防重叠机制直接跳过
	if err := s.sched.RunOnce(source, category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "internal server error"})
		return
	}

	data := gin.H{"source": source, "category": category}
	if latest := s.snapshots.Latest(source, category); latest != nil {
		data["seq"] = latest.Seq
		data["items"] = len(latest.Items)
		data["fetched_at"] = latest.FetchedAt
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func (s *Server) listItems(c *gin.Context) {
	source := c.Query("source")
	category := c.Query("category")

	sort := c.DefaultQuery("sort", "hot")
	if sort != "hot" && sort != "latest" {
		sort = "hot"
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	date := c.Query("date")

	items, err := s.archive.ListItems(source, category, sort, limit, date)
	if errors.Is(err, storage.ErrArchiveDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "archive_disabled",
			"message": "postgres archive not configured",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

// BasicAuth 为整个站点增加一个简单的访问密码。
// /health 不做认证，便于健康检查。
func BasicAuth(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
