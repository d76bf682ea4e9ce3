package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openpmca/webinstaller/internal/common"
	"github.com/openpmca/webinstaller/internal/portal"
	"github.com/openpmca/webinstaller/internal/spk"
	"github.com/openpmca/webinstaller/internal/xpd"
)

// fail maps the error taxonomy onto HTTP statuses. Every core operation
// fails fast with a typed sentinel; nothing is retried here.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrorProtocol):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorInvalidToken):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrorAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrorRemoteService):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), err.Error())
	}

	c.JSON(status, gin.H{"error": http.StatusText(status)})
}

func attachment(c *gin.Context, mimeType, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%q", filename))
	c.Data(http.StatusOK, mimeType, data)
}

// startTask creates a new provisioning task, optionally referencing an
// uploaded package, and returns its id.
func (s *Server) startTask(c *gin.Context) {
	ctx := c.Request.Context()

	handle := c.Param("handle")
	if handle != "" {
		ok, err := s.storage.Exists(ctx, handle)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !ok {
			s.fail(c, common.ErrorNotFound)
			return
		}
	}

	task, err := s.tasks.Start(ctx, handle)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": task.ID})
}

// viewTask reports the task status to the polling browser session. The raw
// callback payload is decoded for display once the task has completed; a
// payload that does not decode is reported as such, not hidden.
func (s *Server) viewTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var response any
	if task.Completed {
		req, err := portal.ParseRequest(task.Response)
		if err != nil {
			response = gin.H{"parse_error": err.Error()}
		} else {
			response = req.Fields
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        task.ID,
		"completed": task.Completed,
		"response":  response,
	})
}

// uploadPackage stores a plain application package and returns its handle.
func (s *Server) uploadPackage(c *gin.Context) {
	file, err := c.FormFile("package")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing package file"})
		return
	}

	f, err := file.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	handle, err := s.storage.Save(c.Request.Context(), data)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"handle": handle})
}

// descriptor hands the camera plugin the descriptor document for a task.
func (s *Server) descriptor(c *gin.Context) {
	doc, err := s.coordinator.Descriptor(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Data(http.StatusOK, xpd.MimeType, doc)
}

// portalCallback receives the camera's POST and replies with the next
// action envelope.
func (s *Server) portalCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}

	response, err := s.coordinator.HandleCallback(c.Request.Context(), body)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Data(http.StatusOK, portal.MimeType, response)
}

// container serves the device container derived from an uploaded package.
func (s *Server) container(c *gin.Context) {
	filename, data, err := s.coordinator.Container(c.Request.Context(), c.Param("handle"), c.Query("token"))
	if err != nil {
		s.fail(c, err)
		return
	}

	attachment(c, spk.MimeType, filename, data)
}

// storeLogin exchanges the store credential for a portal account id.
func (s *Server) storeLogin(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	portalID, err := s.market.Login(c.Request.Context(), email, password)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portalid": portalID})
}

// storeDevices lists the cameras bound to the store account.
func (s *Server) storeDevices(c *gin.Context) {
	devices, err := s.market.Devices(c.Request.Context(), c.Param("account"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// storeApps lists the installable apps for a device. Placeholder catalog
// rows are filtered here: the client returns the full set and filtering is
// this caller's policy.
func (s *Server) storeApps(c *gin.Context) {
	apps, err := s.market.Apps(c.Request.Context(), c.Param("device"))
	if err != nil {
		s.fail(c, err)
		return
	}

	available := apps[:0]
	for _, app := range apps {
		if app.Available() {
			available = append(available, app)
		}
	}

	c.JSON(http.StatusOK, gin.H{"apps": available})
}

// storeDownload fetches a purchased app container from the vendor store,
// unwraps it and serves the plain package. The filename keeps the store's
// hint with the container extension replaced by the package extension.
func (s *Server) storeDownload(c *gin.Context) {
	ctx := c.Request.Context()

	name, container, err := s.market.Download(ctx, c.Param("account"), c.Param("device"), c.Param("app"))
	if err != nil {
		s.fail(c, err)
		return
	}

	apk, err := spk.Parse(container)
	if err != nil {
		s.fail(c, err)
		return
	}

	filename := strings.TrimSuffix(name, spk.Extension) + spk.ApkExtension
	attachment(c, spk.ApkMimeType, filename, apk)
}
