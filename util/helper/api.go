package helper_util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// maxPageSize caps one listing page. Policy set ids are short and deployments
// carry at most a few thousand of them; a caller wanting everything pages.
const maxPageSize = 100

func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		return 0, 0, err
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
