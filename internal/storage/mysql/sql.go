package mysql

// Statuses that still hold room inventory.
const openStatuses = "('pending','confirmed','checked_in')"

/********** homestays & rooms **********/

const homestayCols = `h.id, h.host_id, h.name, h.slug, h.description, h.property_type_id,
  h.destination_id, h.community_id, h.address, h.city, h.lat, h.lon, h.amenity_ids,
  h.images, h.status, h.rejection_reason, h.featured_rank, h.onboarding_step,
  h.created_at, h.updated_at`

const insertHomestaySQL = `
INSERT INTO homestays
  (host_id, name, slug, description, property_type_id, destination_id, community_id,
   address, city, lat, lon, amenity_ids, images, status, rejection_reason,
   featured_rank, onboarding_step, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateHomestaySQL = `
UPDATE homestays SET
  host_id          = ?,
  name             = ?,
  slug             = ?,
  description      = ?,
  property_type_id = ?,
  destination_id   = ?,
  community_id     = ?,
  address          = ?,
  city             = ?,
  lat              = ?,
  lon              = ?,
  amenity_ids      = ?,
  images           = ?,
  status           = ?,
  rejection_reason = ?,
  featured_rank    = ?,
  onboarding_step  = ?,
  updated_at       = ?
WHERE id = ?
`

const selectHomestaySQL = `SELECT ` + homestayCols + ` FROM homestays h WHERE h.id = ?`

const draftByHostSQL = `SELECT ` + homestayCols + `
FROM homestays h
WHERE h.host_id = ? AND h.status = 'draft'
ORDER BY h.id DESC
LIMIT 1
`

const listFeaturedSQL = `SELECT ` + homestayCols + `
FROM homestays h
WHERE h.featured_rank IS NOT NULL AND h.status = 'approved'
ORDER BY h.featured_rank
`

// cheapestRoomJoin narrows a homestay listing to those with an active room
// fitting the party, exposing its nightly price as mp.min_price.
const cheapestRoomJoin = `
JOIN (
  SELECT homestay_id, MIN(price_per_night) AS min_price
  FROM rooms
  WHERE active = 1 AND capacity >= ?
  GROUP BY homestay_id
) mp ON mp.homestay_id = h.id`

const homestayExistsSQL = `SELECT EXISTS(SELECT 1 FROM homestays WHERE id = ?)`
const clearFeaturedSQL = `UPDATE homestays SET featured_rank = NULL WHERE featured_rank IS NOT NULL`
const setFeaturedSQL = `UPDATE homestays SET featured_rank = ? WHERE id = ?`
const clearCommunitySQL = `UPDATE homestays SET community_id = NULL WHERE community_id = ?`
const setCommunitySQL = `UPDATE homestays SET community_id = ? WHERE id = ?`

const roomCols = `id, homestay_id, name, capacity, price_per_night, quantity, active`

const insertRoomSQL = `
INSERT INTO rooms (homestay_id, name, capacity, price_per_night, quantity, active)
VALUES (?, ?, ?, ?, ?, ?)
`

const updateRoomSQL = `
UPDATE rooms SET
  name            = ?,
  capacity        = ?,
  price_per_night = ?,
  quantity        = ?,
  active          = ?
WHERE id = ?
`

const selectRoomSQL = `SELECT ` + roomCols + ` FROM rooms WHERE id = ?`
const listRoomsSQL = `SELECT ` + roomCols + ` FROM rooms WHERE homestay_id = ? ORDER BY id`
const deleteRoomsSQL = `DELETE FROM rooms WHERE homestay_id = ?`
const deleteRoomSQL = `DELETE FROM rooms WHERE id = ?`
const roomExistsSQL = `SELECT EXISTS(SELECT 1 FROM rooms WHERE id = ?)`

/********** bookings **********/

const bookingCols = `b.id, b.reference, b.guest_id, b.homestay_id, b.room_id, b.check_in,
  b.check_out, b.guests, b.nights, b.subtotal, b.discount_code, b.discount_amount,
  b.total, b.status, b.cancel_reason, b.created_at, b.updated_at`

// lockRoomSQL serializes bookings of one room for the rest of the transaction.
const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

const countOverlapSQL = `
SELECT COUNT(*) FROM bookings
WHERE room_id = ?
  AND status IN ` + openStatuses + `
  AND check_in < ?
  AND check_out > ?
`

const consumeDiscountSQL = `UPDATE discount_codes SET used_at = ? WHERE code = ? AND used_at IS NULL`

const insertBookingSQL = `
INSERT INTO bookings
  (reference, guest_id, homestay_id, room_id, check_in, check_out, guests, nights,
   subtotal, discount_code, discount_amount, total, status, cancel_reason,
   created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectBookingSQL = `SELECT ` + bookingCols + ` FROM bookings b WHERE b.id = ?`

const updateBookingStatusSQL = `
UPDATE bookings SET
  status        = ?,
  cancel_reason = COALESCE(?, cancel_reason),
  updated_at    = ?
WHERE id = ? AND status = ?
`

const bookingExistsSQL = `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = ?)`

const hasFutureBookingsSQL = `
SELECT EXISTS(
  SELECT 1 FROM bookings
  WHERE room_id = ? AND status IN ` + openStatuses + ` AND check_out > ?
)`

const openBookingHomestaysSQL = `
SELECT DISTINCT homestay_id FROM bookings
WHERE status IN ` + openStatuses + `
ORDER BY homestay_id
`

const hostHomestayCountSQL = `SELECT COUNT(*) FROM homestays WHERE host_id = ?`

const hostBookingStatsSQL = `
SELECT
  b.status,
  COUNT(*),
  COALESCE(SUM(CASE WHEN b.status = 'completed' THEN b.total END), 0),
  COALESCE(SUM(CASE WHEN b.status = 'confirmed' AND b.check_in >= ? AND b.check_in < ? THEN 1 ELSE 0 END), 0)
FROM bookings b
JOIN homestays h ON h.id = b.homestay_id
WHERE h.host_id = ?
GROUP BY b.status
`

const hostRatingSQL = `
SELECT COUNT(*), COALESCE(AVG(r.rating), 0)
FROM reviews r
JOIN homestays h ON h.id = r.homestay_id
WHERE h.host_id = ?
`

/********** reviews **********/

const reviewCols = `r.id, r.homestay_id, r.booking_id, r.guest_id, COALESCE(u.name, ''),
  r.campaign_id, r.rating, r.comment, r.host_reply, r.source, r.created_at`

const reviewFrom = ` FROM reviews r LEFT JOIN users u ON u.id = r.guest_id`

const insertReviewSQL = `
INSERT INTO reviews
  (homestay_id, booking_id, guest_id, campaign_id, rating, comment, host_reply, source, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectReviewSQL = `SELECT ` + reviewCols + reviewFrom + ` WHERE r.id = ?`

const listReviewsSQL = `SELECT ` + reviewCols + reviewFrom + `
WHERE r.homestay_id = ?
ORDER BY r.created_at DESC, r.id DESC`

const listHostReviewsSQL = `SELECT ` + reviewCols + reviewFrom + `
JOIN homestays h ON h.id = r.homestay_id
WHERE h.host_id = ?
ORDER BY r.created_at DESC, r.id DESC`

const replyReviewSQL = `UPDATE reviews SET host_reply = ? WHERE id = ?`
const reviewExistsSQL = `SELECT EXISTS(SELECT 1 FROM reviews WHERE id = ?)`
const reviewForBookingSQL = `SELECT EXISTS(SELECT 1 FROM reviews WHERE booking_id = ?)`
const reviewForCampaignSQL = `SELECT EXISTS(SELECT 1 FROM reviews WHERE campaign_id = ? AND guest_id = ?)`
const ratingSummarySQL = `SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE homestay_id = ?`

/********** campaigns, QR codes, discounts **********/

const campaignCols = `id, name, homestay_id, discount_percent, valid_until, active, created_by, created_at`

const insertCampaignSQL = `
INSERT INTO campaigns (name, homestay_id, discount_percent, valid_until, active, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const selectCampaignSQL = `SELECT ` + campaignCols + ` FROM campaigns WHERE id = ?`
const listCampaignsSQL = `SELECT ` + campaignCols + ` FROM campaigns ORDER BY id DESC`
const deactivateCampaignSQL = `UPDATE campaigns SET active = 0 WHERE id = ?`
const campaignExistsSQL = `SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = ?)`

const insertQRCodesPrefix = "INSERT INTO qr_codes (code, campaign_id, scans, submissions, created_at) VALUES "

const qrCols = `code, campaign_id, scans, submissions, created_at`
const listQRCodesSQL = `SELECT ` + qrCols + ` FROM qr_codes WHERE campaign_id = ? ORDER BY code`
const selectQRCodeSQL = `SELECT ` + qrCols + ` FROM qr_codes WHERE code = ?`
const incrementScanSQL = `UPDATE qr_codes SET scans = scans + 1 WHERE code = ?`
const incrementSubmissionSQL = `UPDATE qr_codes SET submissions = submissions + 1 WHERE code = ?`

const insertDiscountSQL = `
INSERT INTO discount_codes (code, guest_id, campaign_id, percent, expires_at, used_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const selectDiscountSQL = `
SELECT code, guest_id, campaign_id, percent, expires_at, used_at
FROM discount_codes WHERE code = ?
`

/********** blogs **********/

const blogCols = `id, title, slug, excerpt, content_html, cover_image, tags, status,
  author_id, published_at, created_at, updated_at`

const insertBlogSQL = `
INSERT INTO blogs
  (title, slug, excerpt, content_html, cover_image, tags, status, author_id,
   published_at, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateBlogSQL = `
UPDATE blogs SET
  title        = ?,
  slug         = ?,
  excerpt      = ?,
  content_html = ?,
  cover_image  = ?,
  tags         = ?,
  status       = ?,
  author_id    = ?,
  published_at = ?,
  updated_at   = ?
WHERE id = ?
`

const selectBlogSQL = `SELECT ` + blogCols + ` FROM blogs WHERE id = ?`
const selectBlogBySlugSQL = `SELECT ` + blogCols + ` FROM blogs WHERE slug = ?`
const deleteBlogSQL = `DELETE FROM blogs WHERE id = ?`
const blogExistsSQL = `SELECT EXISTS(SELECT 1 FROM blogs WHERE id = ?)`
const blogSlugTakenSQL = `SELECT EXISTS(SELECT 1 FROM blogs WHERE slug = ? AND id <> ?)`
const blogOrder = ` ORDER BY COALESCE(published_at, created_at) DESC, id DESC`

/********** communities & managers **********/

const communityCols = `id, name, slug, description, destination_id, manager_id`

const insertCommunitySQL = `
INSERT INTO communities (name, slug, description, destination_id, manager_id)
VALUES (?, ?, ?, ?, ?)
`

const updateCommunitySQL = `
UPDATE communities SET
  name           = ?,
  slug           = ?,
  description    = ?,
  destination_id = ?,
  manager_id     = ?
WHERE id = ?
`

const selectCommunitySQL = `SELECT ` + communityCols + ` FROM communities WHERE id = ?`
const selectCommunityBySlugSQL = `SELECT ` + communityCols + ` FROM communities WHERE slug = ?`
const listCommunitiesSQL = `SELECT ` + communityCols + ` FROM communities ORDER BY name, id`
const deleteCommunitySQL = `DELETE FROM communities WHERE id = ?`
const communityExistsSQL = `SELECT EXISTS(SELECT 1 FROM communities WHERE id = ?)`

const insertManagerSQL = `INSERT INTO community_managers (name, email, phone) VALUES (?, ?, ?)`
const updateManagerSQL = `UPDATE community_managers SET name = ?, email = ?, phone = ? WHERE id = ?`
const selectManagerSQL = `SELECT id, name, email, phone FROM community_managers WHERE id = ?`
const listManagersSQL = `SELECT id, name, email, phone FROM community_managers ORDER BY id`
const deleteManagerSQL = `DELETE FROM community_managers WHERE id = ?`
const managerExistsSQL = `SELECT EXISTS(SELECT 1 FROM community_managers WHERE id = ?)`

/********** master data **********/

const masterCols = `id, kind, name, slug, description, image, icon`

const insertMasterSQL = `
INSERT INTO master_items (kind, name, slug, description, image, icon)
VALUES (?, ?, ?, ?, ?, ?)
`

const updateMasterSQL = `
UPDATE master_items SET
  name        = ?,
  slug        = ?,
  description = ?,
  image       = ?,
  icon        = ?
WHERE id = ? AND kind = ?
`

const selectMasterSQL = `SELECT ` + masterCols + ` FROM master_items WHERE id = ? AND kind = ?`
const selectDestinationBySlugSQL = `SELECT ` + masterCols + ` FROM master_items WHERE kind = 'destinations' AND slug = ?`
const listMasterSQL = `SELECT ` + masterCols + ` FROM master_items WHERE kind = ? ORDER BY name, id`
const deleteMasterSQL = `DELETE FROM master_items WHERE id = ? AND kind = ?`
const masterExistsSQL = `SELECT EXISTS(SELECT 1 FROM master_items WHERE id = ? AND kind = ?)`

const destinationInUseSQL = `
SELECT EXISTS(SELECT 1 FROM homestays WHERE destination_id = ?)
    OR EXISTS(SELECT 1 FROM communities WHERE destination_id = ?)`
const propertyTypeInUseSQL = `SELECT EXISTS(SELECT 1 FROM homestays WHERE property_type_id = ?)`
const amenityInUseSQL = `SELECT EXISTS(SELECT 1 FROM homestays WHERE JSON_CONTAINS(amenity_ids, CAST(? AS JSON)))`

/********** users **********/

const userCols = `id, name, email, phone, password_hash, role, created_at`

const insertUserSQL = `
INSERT INTO users (name, email, phone, password_hash, role, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const selectUserSQL = `SELECT ` + userCols + ` FROM users WHERE id = ?`
const selectUserByEmailSQL = `SELECT ` + userCols + ` FROM users WHERE email = ?`
const selectUserByPhoneSQL = `SELECT ` + userCols + ` FROM users WHERE phone = ?`
const setRoleSQL = `UPDATE users SET role = ? WHERE id = ?`
const userExistsSQL = `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`
