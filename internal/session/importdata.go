// Package session holds the state shared by the steps of one import.
package session

import (
	"sync"

	"github.com/mrsinham/shanoirimport/internal/dicom"
)

// ArchiveUpload is what the upload step produced: the parsed tree and the
// server-side folder the images were extracted to.
type ArchiveUpload struct {
	Patients   []*dicom.PatientDicom `json:"patients"`
	WorkFolder string                `json:"workFolder"`
}

// Event is sent to subscribers after every patient update.
type Event struct {
	Patients []*dicom.PatientDicom
	Selected int
}

// ImportData is the import context handed to each wizard step. It is safe
// for concurrent use.
type ImportData struct {
	mu                sync.RWMutex
	archiveUploaded   *ArchiveUpload
	inMemoryExtracted dicom.Archive
	patients          []*dicom.PatientDicom
	subscribers       []chan Event
}

// New returns an empty session.
func New() *ImportData {
	return &ImportData{}
}

// SetArchiveUploaded records the upload result. archive is nil when the
// images live on the server.
func (d *ImportData) SetArchiveUploaded(upload *ArchiveUpload, archive dicom.Archive) {
	d.mu.Lock()
	d.archiveUploaded = upload
	d.inMemoryExtracted = archive
	if upload != nil {
		d.patients = upload.Patients
	}
	d.mu.Unlock()
}

// ArchiveUploaded returns the upload result, or nil before any upload.
func (d *ImportData) ArchiveUploaded() *ArchiveUpload {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.archiveUploaded
}

// InMemoryExtracted returns the locally extracted archive, if any.
func (d *ImportData) InMemoryExtracted() dicom.Archive {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.inMemoryExtracted
}

// Patients returns the current patient list.
func (d *ImportData) Patients() []*dicom.PatientDicom {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.patients
}

// SetPatients replaces the patient list and notifies subscribers.
func (d *ImportData) SetPatients(patients []*dicom.PatientDicom) {
	d.mu.Lock()
	d.patients = patients
	ev := Event{Patients: patients, Selected: len(dicom.SelectedSeries(patients))}
	for _, ch := range d.subscribers {
		publish(ch, ev)
	}
	d.mu.Unlock()
}

// Subscribe returns a channel receiving patient updates. A slow subscriber
// only sees the latest event. The returned func unsubscribes and closes the
// channel.
func (d *ImportData) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)
	d.mu.Lock()
	d.subscribers = append(d.subscribers, ch)
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, sub := range d.subscribers {
				if sub == ch {
					d.subscribers = append(d.subscribers[:i], d.subscribers[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
}

// publish replaces any pending event with ev. Callers hold d.mu.
func publish(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
