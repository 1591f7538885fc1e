package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/notification"
)

func Test_notificationApi_listAndMarkRead(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	other := env.CreateSchool(t, "Other")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	_, parent := env.CreateParent(t, sch.ID, "parent")
	class := env.CreateClass(t, sch.ID, "1A")
	env.CreateStudent(t, sch.ID, class.ID, parent.ParentID, "Ada")

	ctx := context.Background()
	// the school wide notification of a generation
	_, err := env.Svcs.Reports.GenerateAttendance(ctx, admin)
	require.NoError(t, err)
	toAdmin, err := env.Svcs.Notifications.Notify(ctx, notification.Notification{SchoolID: sch.ID, UserID: admin.UserID, Kind: "info", Title: "Hi admin"})
	require.NoError(t, err)
	toParent, err := env.Svcs.Notifications.Notify(ctx, notification.Notification{SchoolID: sch.ID, UserID: parent.UserID, Kind: "info", Title: "Hi parent"})
	require.NoError(t, err)
	foreign, err := env.Svcs.Notifications.Notify(ctx, notification.Notification{SchoolID: other.ID, Kind: "info", Title: "Elsewhere"})
	require.NoError(t, err)

	runTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/notifications/list", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
	})

	var notifs []notification.Notification
	rec := do(app, httpTest{path: "/v1/notifications/list", token: getToken(t, env, admin)})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &notifs)
	require.Len(t, notifs, 2)
	titles := []string{notifs[0].Title, notifs[1].Title}
	assert.Contains(t, titles, "Hi admin")
	assert.Contains(t, titles, "attendance reports generated")

	var schoolWide notification.Notification
	for _, n := range notifs {
		if n.UserID == "" {
			schoolWide = n
		}
	}
	assert.Equal(t, notification.KindReportGenerated, schoolWide.Kind)
	assert.Equal(t, "1 attendance reports generated, 0 failed", schoolWide.Body)

	notFound := marchallObj(t, echoapi.ErrorResponse{Message: "notification not found"})
	parentToken := getToken(t, env, parent)
	runTests(t, app, []httpTest{
		{name: "Someone else's", method: http.MethodPut, path: "/v1/notifications/read/" + toAdmin.ID, token: parentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Other school", method: http.MethodPut, path: "/v1/notifications/read/" + foreign.ID, token: parentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Own", method: http.MethodPut, path: "/v1/notifications/read/" + toParent.ID, token: parentToken, wantCode: http.StatusOK},
		{name: "School wide", method: http.MethodPut, path: "/v1/notifications/read/" + schoolWide.ID, token: parentToken, wantCode: http.StatusOK},
	})

	rec = do(app, httpTest{path: "/v1/notifications/list", token: parentToken})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &notifs)
	require.Len(t, notifs, 2)
	for _, n := range notifs {
		assert.NotNil(t, n.ReadAt, n.Title)
	}
}

func Test_notificationApi_stream(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	_, parent := env.CreateParent(t, sch.ID, "parent")

	runTests(t, app, []httpTest{
		{name: "Token required", path: "/v1/notifications/ws", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, echoapi.ErrorResponse{Message: "user not authenticated"})},
		{name: "Invalid token", path: "/v1/notifications/ws?token=lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, echoapi.ErrorResponse{Message: "invalid or expired jwt"})},
	})

	srv := httptest.NewServer(app)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/notifications/ws?token=" + getToken(t, env, parent)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return env.Broker.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	// not for the parent
	_, err = env.Svcs.Notifications.Notify(ctx, notification.Notification{SchoolID: sch.ID, UserID: admin.UserID, Kind: "info", Title: "Hi admin"})
	require.NoError(t, err)
	_, err = env.Svcs.Notifications.Notify(ctx, notification.Notification{SchoolID: sch.ID, Kind: "info", Title: "Hi school"})
	require.NoError(t, err)
	_, err = env.Svcs.Notifications.Notify(ctx, notification.Notification{SchoolID: sch.ID, UserID: parent.UserID, Kind: "info", Title: "Hi parent"})
	require.NoError(t, err)

	for _, want := range []string{"Hi school", "Hi parent"} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		var n notification.Notification
		require.NoError(t, json.Unmarshal(payload, &n))
		assert.Equal(t, want, n.Title)
		assert.NotEmpty(t, n.ID)
	}

	// closing the socket releases the subscription
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return env.Broker.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
