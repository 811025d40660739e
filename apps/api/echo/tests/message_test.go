package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_messageApi_inbox(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "loner", "loner@test.cd", "", user.RoleStudent, true)

	old := testutil.CreateMessage(t, msgRepo, teacher, student, "Welcome", time.Now().UTC().Add(-time.Hour))
	latest := testutil.CreateMessage(t, msgRepo, teacher, student, "Reminder")

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "empty inbox", token: getToken(t, outsider), wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)},
		{name: "received messages, newest first", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, latest, old)},
		{name: "sent messages are not inbox", token: getToken(t, teacher), wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/messages"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_messageApi_send(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)
	classmate := testutil.CreateUser(t, usrRepo, "buddy", "buddy@test.cd", "", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, crsRepo, "Intro to CS", "CS101", teacher)
	testutil.Enroll(t, crsRepo, student, crs)
	testutil.Enroll(t, crsRepo, classmate, crs)

	compose := func(recipientID string) []byte {
		return marchallObj(t, message.ComposeMessage{RecipientID: recipientID, Subject: "Question", Body: "About homework 1"})
	}

	reqMsg := "this field is required"
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: getToken(t, student), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"recipient_id": reqMsg, "subject": reqMsg, "body": reqMsg}),
		},
		{
			name: "unknown recipient", token: getToken(t, student), body: compose(uuid.NewString()),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "students cannot message classmates", token: getToken(t, student), body: compose(classmate.ID),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "student to instructor", token: getToken(t, student), body: compose(teacher.ID), wantCode: http.StatusCreated},
		{name: "instructor to student", token: getToken(t, teacher), body: compose(student.ID), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/messages"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
				}
				var msg message.Message
				if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if msg.ID == "" || msg.Read {
					t.Errorf("failed! unexpected message %+v", msg)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_messageApi_sent(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)

	msg := testutil.CreateMessage(t, msgRepo, teacher, student, "Welcome")

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "sender's outbox", token: getToken(t, teacher), wantCode: http.StatusOK, wantData: marchallList(t, msg)},
		{name: "recipient's outbox is empty", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/messages/sent"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_messageApi_recipients(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	ta := testutil.CreateUser(t, usrRepo, "aide", "aide@test.cd", "", user.RoleTA, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)
	classmate := testutil.CreateUser(t, usrRepo, "buddy", "buddy@test.cd", "", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "loner", "loner@test.cd", "", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, crsRepo, "Intro to CS", "CS101", teacher)
	testutil.Enroll(t, crsRepo, student, crs)
	testutil.Enroll(t, crsRepo, classmate, crs)
	testutil.AssignTA(t, crsRepo, ta, crs)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "no courses, no recipients", token: getToken(t, outsider), wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)},
		{name: "students see course staff only", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, ta, teacher)},
		{name: "instructors see everyone in their course", token: getToken(t, teacher), wantCode: http.StatusOK, wantData: marchallList(t, ta, classmate, student)},
		{name: "TAs see everyone in their course", token: getToken(t, ta), wantCode: http.StatusOK, wantData: marchallList(t, classmate, student, teacher)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/messages/recipients"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_messageApi_retrieve(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "loner", "loner@test.cd", "", user.RoleStudent, true)

	msg := testutil.CreateMessage(t, msgRepo, teacher, student, "Welcome")

	notFound := marchallObj(t, httpErr{Error: "not found"})

	t.Run("unknown message", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/messages/"+uuid.NewString(), getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: notFound}, rec)
	})

	t.Run("third parties get a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/messages/"+msg.ID, getToken(t, outsider))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: notFound}, rec)
	})

	t.Run("sender view does not mark read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/messages/"+msg.ID, getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, msg)}, rec)

		stored, err := msgRepo.GetMessageByID(context.Background(), msg.ID)
		if err != nil {
			t.Fatalf("GetMessageByID(): %v", err)
		}
		if stored.Read {
			t.Error("failed! sender view marked the message read")
		}
	})

	t.Run("recipient view marks read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/messages/"+msg.ID, getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var got message.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !got.Read {
			t.Error("failed! message should be marked read")
		}
	})
}

func Test_messageApi_markRead(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)

	msg := testutil.CreateMessage(t, msgRepo, teacher, student, "Welcome")

	t.Run("recipient required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/messages/"+msg.ID+"/read", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("marked read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/messages/"+msg.ID+"/read", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var got message.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !got.Read {
			t.Error("failed! message should be marked read")
		}
	})

	t.Run("marking again is a no-op", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/messages/"+msg.ID+"/read", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
	})
}

func Test_messageApi_announcements(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	rival := testutil.CreateUser(t, usrRepo, "rival", "rival@test.cd", "", user.RoleInstructor, true)
	ta := testutil.CreateUser(t, usrRepo, "aide", "aide@test.cd", "", user.RoleTA, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "loner", "loner@test.cd", "", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, crsRepo, "Intro to CS", "CS101", teacher)
	testutil.Enroll(t, crsRepo, student, crs)
	testutil.AssignTA(t, crsRepo, ta, crs)

	newAnn := func(courseID string) []byte {
		return marchallObj(t, message.NewAnnouncement{CourseID: courseID, Title: "Midterm moved", Content: "Now on Friday"})
	}

	reqMsg := "this field is required"
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	t.Run("post", func(t *testing.T) {
		tests := []httpTest{
			{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			{name: "Staff required", token: getToken(t, student), body: newAnn(crs.ID), wantCode: http.StatusForbidden, wantData: forbidden},
			{
				name: "required fields", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"course_id": reqMsg, "title": reqMsg, "content": reqMsg}),
			},
			{
				name: "unknown course", token: getToken(t, teacher), body: newAnn(uuid.NewString()),
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
			},
			{name: "course staff required", token: getToken(t, rival), body: newAnn(crs.ID), wantCode: http.StatusForbidden, wantData: forbidden},
			{name: "posted by instructor", token: getToken(t, teacher), body: newAnn(crs.ID), wantCode: http.StatusCreated},
			{name: "posted by TA", token: getToken(t, ta), body: newAnn(crs.ID), wantCode: http.StatusCreated},
		}
		for _, tt := range tests {
			tt.method = http.MethodPost
			tt.path = "/api/announcements"

			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
				app.ServeHTTP(rec, req)

				if tt.wantCode == http.StatusCreated {
					if rec.Code != tt.wantCode {
						t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
					}
					var ann message.Announcement
					if err := json.Unmarshal(rec.Body.Bytes(), &ann); err != nil {
						t.Fatalf("json.Unmarshal(): %v", err)
					}
					if ann.ID == "" || ann.CourseID != crs.ID {
						t.Errorf("failed! unexpected announcement %+v", ann)
					}
					return
				}
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("list", func(t *testing.T) {
		ann := testutil.CreateAnnouncement(t, msgRepo, crs, teacher, "Office hours")

		req, rec := newAuthRequest(http.MethodGet, "/api/announcements", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var anns []message.Announcement
		if err := json.Unmarshal(rec.Body.Bytes(), &anns); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		found := false
		for _, a := range anns {
			if a.ID == ann.ID {
				found = true
			}
		}
		if !found {
			t.Error("failed! seeded announcement missing from the list")
		}

		req, rec = newAuthRequest(http.MethodGet, "/api/announcements", getToken(t, outsider))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}, rec)
	})
}
