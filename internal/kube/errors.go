package kube

import (
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func alreadyExists(gvr schema.GroupVersionResource, name string) error {
	return apierrors.NewAlreadyExists(gvr.GroupResource(), name)
}

func isNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// HTTPStatus maps an API status error to the HTTP status the console should
// answer with. ok is false when err is not a recognised API error.
func HTTPStatus(err error) (code int, ok bool) {
	switch {
	case err == nil:
		return http.StatusOK, true
	case apierrors.IsNotFound(err):
		return http.StatusNotFound, true
	case apierrors.IsAlreadyExists(err), apierrors.IsConflict(err):
		return http.StatusConflict, true
	case apierrors.IsForbidden(err):
		return http.StatusForbidden, true
	case apierrors.IsUnauthorized(err):
		return http.StatusUnauthorized, true
	case apierrors.IsInvalid(err), apierrors.IsBadRequest(err):
		return http.StatusUnprocessableEntity, true
	}
	return 0, false
}
