// ABOUTME: Turn is one prior question/answer exchange supplied by the caller
// ABOUTME: The Answerer keeps no conversation state of its own
package models

// Turn represents a previous exchange in a study chat
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
