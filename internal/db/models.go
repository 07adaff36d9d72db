package db

import "github.com/veloracart/velora/internal/models"

type Order = models.Order
type DeliveryStatus = models.DeliveryStatus
type DeliveryCode = models.DeliveryCode
type User = models.User
type Product = models.Product
type Review = models.Review
type BagItem = models.BagItem
type WishlistItem = models.WishlistItem
type Subscriber = models.Subscriber

const (
	StatusPending   = models.StatusPending
	StatusApproved  = models.StatusApproved
	StatusOnTheWay  = models.StatusOnTheWay
	StatusDelivered = models.StatusDelivered
	StatusRejected  = models.StatusRejected
)
