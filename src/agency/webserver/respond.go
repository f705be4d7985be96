package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/OneOfOne/xxhash"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/cat-agency/src/agency/errs"
)

func fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"err": msg, "kind": errs.KindOf(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"err": err.Error(), "kind": "InvalidInput"})
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad " + name, "kind": "InvalidInput"})
		return 0, false
	}
	return id, true
}

// withETag writes v as JSON tagged with its content hash and answers 304 when
// the client already holds that version.
func withETag(c *gin.Context, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		fail(c, err)
		return
	}
	tag := fmt.Sprintf(`"%016x"`, xxhash.Checksum64(body))
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
