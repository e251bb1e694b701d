package notifications

// DeleteNotificationsRequest is the body of POST /notifications/delete
type DeleteNotificationsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,uuid"`
}
