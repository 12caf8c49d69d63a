package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/kvstore"
	"github.com/starford/smartstudy/internal/models"
	"github.com/starford/smartstudy/internal/transfer"
)

var env = Env{Now: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}

func base() models.Collections {
	audio := []models.AudioAttachment{{ID: "a1", URL: "data:audio/webm;base64,AA", Name: "rec", CreatedAt: "2024-08-01"}}
	return models.Collections{
		Subjects: []models.Subject{{ID: "s1", Name: "Biology"}},
		Notes: []models.Note{{
			ID: "n1", SubjectID: "s1", Title: "Cells",
			Content: document.Encode(`<p>See <a href="u">u</a></p><img src="i.png">`, audio, ""),
		}},
		Resources: []models.Resource{{ID: "res-audio-a1", SubjectID: "s1", Title: "rec", Type: models.ResourceAudio, URL: "data:audio/webm;base64,AA"}},
	}
}

func TestReduce_PutSubjectAssignsID(t *testing.T) {
	res, err := Reduce(models.Collections{}, PutSubject{Subject: models.Subject{Name: "Maths"}}, env)
	require.NoError(t, err)
	require.Len(t, res.State.Subjects, 1)
	s := res.State.Subjects[0]
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "2024-09-01T08:00:00Z", s.CreatedAt)
	assert.Equal(t, Keys{kvstore.KeySubjects}, res.Keys)
}

func TestReduce_PutValidation(t *testing.T) {
	_, err := Reduce(base(), PutSubject{Subject: models.Subject{ID: "x"}}, env)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = Reduce(base(), PutTask{Task: models.Task{SubjectID: "s1", Title: "t", Status: "blocked"}}, env)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = Reduce(base(), PutTask{Task: models.Task{SubjectID: "missing", Title: "t"}}, env)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReduce_PutTaskDefaultsAndReplace(t *testing.T) {
	res, err := Reduce(base(), PutTask{Task: models.Task{ID: "t1", SubjectID: "s1", Title: "Read ch. 1"}}, env)
	require.NoError(t, err)
	task, _ := res.State.FindTask("t1")
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)

	task.Status = models.StatusDone
	res, err = Reduce(res.State, PutTask{Task: task}, env)
	require.NoError(t, err)
	require.Len(t, res.State.Tasks, 1)
	assert.Equal(t, models.StatusDone, res.State.Tasks[0].Status)
}

func TestReduce_SoftDeleteSubjectKeys(t *testing.T) {
	res, err := Reduce(base(), SoftDelete{Kind: models.KindSubject, ID: "s1"}, env)
	require.NoError(t, err)
	require.NotNil(t, res.Trashed)
	for _, k := range []string{kvstore.KeySubjects, kvstore.KeyNotes, kvstore.KeyTasks, kvstore.KeyResources, kvstore.KeyTrash} {
		assert.True(t, res.Keys.Has(k), k)
	}

	res, err = Reduce(res.State, Restore{TrashID: res.Trashed.ID}, env)
	require.NoError(t, err)
	assert.True(t, res.Restored)
	assert.Len(t, res.State.Notes, 1)
}

func TestReduce_RestoreUnknownIsNoop(t *testing.T) {
	c := base()
	res, err := Reduce(c, Restore{TrashID: "nope"}, env)
	require.NoError(t, err)
	assert.False(t, res.Restored)
	assert.Empty(t, res.Keys)
	assert.Equal(t, c, res.State)
}

func TestReduce_PurgeUnknown(t *testing.T) {
	_, err := Reduce(base(), Purge{TrashID: "nope"}, env)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReduce_SaveNoteDocument(t *testing.T) {
	doc := document.Decoded{Visible: "<p>new</p>", Summary: "<p>sum</p>"}
	res, err := Reduce(base(), SaveNoteDocument{NoteID: "n1", Title: "Cells v2", Document: doc}, env)
	require.NoError(t, err)
	n, _ := res.State.FindNote("n1")
	assert.Equal(t, "Cells v2", n.Title)
	assert.Equal(t, document.EncodeDecoded(doc), n.Content)
	assert.Equal(t, "2024-09-01T08:00:00Z", n.LastModified)
}

func TestReduce_RemoveNoteAudioTrashesMirror(t *testing.T) {
	res, err := Reduce(base(), RemoveNoteAudio{NoteID: "n1", AudioID: "a1"}, env)
	require.NoError(t, err)

	n, _ := res.State.FindNote("n1")
	assert.Empty(t, document.Decode(n.Content).Audios)
	assert.Empty(t, res.State.Resources)
	require.NotNil(t, res.Trashed)
	assert.Equal(t, "res-audio-a1", res.Trashed.OriginalID)
	assert.True(t, res.Keys.Has(kvstore.KeyNotes))
	assert.True(t, res.Keys.Has(kvstore.KeyTrash))
}

func TestReduce_RemoveNoteAudioLeavesForeignResource(t *testing.T) {
	c := base()
	c.Resources[0].Type = models.ResourceLink
	res, err := Reduce(c, RemoveNoteAudio{NoteID: "n1", AudioID: "a1"}, env)
	require.NoError(t, err)
	assert.Len(t, res.State.Resources, 1)
	assert.Nil(t, res.Trashed)
}

func TestReduce_RemoveNoteAudioUnknown(t *testing.T) {
	_, err := Reduce(base(), RemoveNoteAudio{NoteID: "n1", AudioID: "zzz"}, env)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReduce_RemoveImageAndLink(t *testing.T) {
	res, err := Reduce(base(), RemoveNoteImage{NoteID: "n1", Index: 0}, env)
	require.NoError(t, err)
	res, err = Reduce(res.State, RemoveNoteLink{NoteID: "n1", Index: 0}, env)
	require.NoError(t, err)

	n, _ := res.State.FindNote("n1")
	d := document.Decode(n.Content)
	assert.Equal(t, "<p>See u</p>", d.Visible)
	assert.Len(t, d.Audios, 1, "other attachments survive")
}

func TestReduce_ImportTouchesAllCollections(t *testing.T) {
	data := transfer.Data{Subjects: []models.Subject{{ID: "z", Name: "Z"}}}
	res, err := Reduce(base(), Import{Data: data, Strategy: transfer.StrategyMerge}, env)
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.Equal(t, 1, res.Report.Added.Subjects)
	assert.Len(t, res.Keys, 4)
	assert.False(t, res.Keys.Has(kvstore.KeyTrash))
}

func TestReduce_InputUntouched(t *testing.T) {
	c := base()
	_, err := Reduce(c, SoftDelete{Kind: models.KindNote, ID: "n1"}, env)
	require.NoError(t, err)
	assert.Equal(t, base(), c)
}

func TestKeys_Add(t *testing.T) {
	k := Keys(nil).Add("a", "b", "a")
	assert.Equal(t, Keys{"a", "b"}, k)
}
