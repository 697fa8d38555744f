package accounts

import "encoding/hex"

// Sanitize projects a user aggregate into the shape clients may see.
// Credentials, session rows, verification internals, and lifecycle fields
// never leave the server, and relation rows go out without their ids. The
// encryption profile goes out hex-encoded with the recovery wrapping
// withheld: only the passphrase holder may use it, and the signup response
// already delivered the passphrase.
func Sanitize(user *User) map[string]any {
	if user == nil {
		return nil
	}

	out := map[string]any{
		"id":        user.ID.String(),
		"email":     user.Email,
		"completed": user.Completed,
	}

	if user.Phone != "" {
		out["phone_number"] = user.Phone
	}

	if user.CreatedAt != nil {
		out["created_at"] = user.CreatedAt
	}

	if user.UpdatedAt != nil {
		out["updated_at"] = user.UpdatedAt
	}

	if user.Profile != nil {
		out["profile"] = sanitizeProfile(user.Profile)
	}

	if user.Admin != nil {
		out["admin"] = sanitizeAdmin(user.Admin)
	}

	if user.EncryptionProfile != nil {
		out["encryption_profile"] = sanitizeEncryptionProfile(user.EncryptionProfile)
	}

	return out
}

func sanitizeProfile(profile *Profile) map[string]any {
	out := map[string]any{
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
	}

	if profile.BirthName != "" {
		out["birth_name"] = profile.BirthName
	}

	if profile.BirthDate != nil {
		out["birth_date"] = profile.BirthDate
	}

	if profile.BirthPlace != "" {
		out["birth_place"] = profile.BirthPlace
	}

	if profile.Address != "" {
		out["address"] = profile.Address
	}

	if profile.AddressDetails != "" {
		out["address_details"] = profile.AddressDetails
	}

	return out
}

func sanitizeAdmin(admin *Admin) map[string]any {
	out := map[string]any{}

	if admin.Department != "" {
		out["department"] = admin.Department
	}

	return out
}

func sanitizeEncryptionProfile(profile *EncryptionProfile) map[string]any {
	return map[string]any{
		"user_key": hex.EncodeToString(profile.UserKey),
	}
}
