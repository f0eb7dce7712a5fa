package echoapi

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other`; a leading "-" sorts descending.
// Fields outside allowed are dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !isAllowed(field, allowed) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func isAllowed(field string, allowed []string) bool {
	for _, a := range allowed {
		if a == field {
			return true
		}
	}
	return false
}

// idParam parses the int64 path parameter name. Malformed ids are reported as not found.
func idParam(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// sendFile writes a generated file. Generation happens before the first byte is sent so that
// errors still get a proper response.
func sendFile(ctx echo.Context, contentType, filename string, write func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	setAttachment(ctx, filename)
	return ctx.Blob(http.StatusOK, contentType, buf.Bytes())
}

// setAttachment sets a Content-Disposition header that is safe for any client supplied filename.
func setAttachment(ctx echo.Context, filename string) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
}

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func bindJSON(ctx echo.Context, dest interface{}, name string) error {
	if err := ctx.Bind(dest); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok && herr.Code == http.StatusBadRequest {
			return core.NewValidationError(errors.New("malformed request body"))
		}
		return errors.Wrap(err, "binding to "+name)
	}
	return nil
}
