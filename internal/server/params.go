package server

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/placar-dev/placar/internal/ledger"
)

var errInvalidPeriod = errors.New("mes must be 1..12 and ano positive")

// periodFilter reads optional mes/ano query parameters. ok is false when
// neither is given; a missing half defaults from the current month.
func (s *Server) periodFilter(c *gin.Context) (period ledger.Period, ok bool, err error) {
	mesStr, hasMes := c.GetQuery("mes")
	anoStr, hasAno := c.GetQuery("ano")
	if !hasMes && !hasAno {
		return ledger.Period{}, false, nil
	}

	period = ledger.CurrentPeriod(s.now())
	if hasMes {
		if period.Mes, err = strconv.Atoi(mesStr); err != nil {
			return period, true, fmt.Errorf("invalid mes %q", mesStr)
		}
	}
	if hasAno {
		if period.Ano, err = strconv.Atoi(anoStr); err != nil {
			return period, true, fmt.Errorf("invalid ano %q", anoStr)
		}
	}
	if !period.Valid() {
		return period, true, errInvalidPeriod
	}
	return period, true, nil
}
