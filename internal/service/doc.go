// Package service holds the application use cases of the study server. It
// sits between the HTTP handlers and the stores and session runtime, and
// depends only on their interfaces.
package service
