package services

import (
	"testing"

	"divvy/internal/pagination"
	"divvy/internal/testutil"
)

func TestCreateGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	groups := NewGroupService(db)

	alice := testutil.CreateTestUser(t, db)

	t.Run("creator becomes the first member", func(t *testing.T) {
		group, err := groups.CreateGroup(alice.ID, "Trip", "")
		testutil.AssertNoError(t, err)
		if len(group.Members) != 1 || group.Members[0].UserID != alice.ID {
			t.Errorf("expected creator as sole member, got %+v", group.Members)
		}
		testutil.AssertNoError(t, groups.RequireMember(group.ID, alice.ID))
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := groups.CreateGroup(alice.ID, "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAddMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	groups := NewGroupService(db)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	carol := testutil.CreateTestUser(t, db)

	group, err := groups.CreateGroup(alice.ID, "Flat", "")
	testutil.AssertNoError(t, err)

	t.Run("members can add others", func(t *testing.T) {
		_, err := groups.AddMember(alice.ID, group.ID, bob.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, groups.RequireMember(group.ID, bob.ID))
	})

	t.Run("non-members cannot add", func(t *testing.T) {
		_, err := groups.AddMember(carol.ID, group.ID, carol.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_MEMBER")
	})

	t.Run("duplicate member", func(t *testing.T) {
		_, err := groups.AddMember(alice.ID, group.ID, bob.ID)
		testutil.AssertAppError(t, err, "DUPLICATE_MEMBER")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := groups.AddMember(alice.ID, group.ID, "missing")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := groups.AddMember(alice.ID, "missing", bob.ID)
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")
	})
}

func TestGetUserGroups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	groups := NewGroupService(db)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)

	for _, name := range []string{"Trip", "Flat", "Dinner club"} {
		_, err := groups.CreateGroup(alice.ID, name, "")
		testutil.AssertNoError(t, err)
	}
	_, err := groups.CreateGroup(bob.ID, "Bob's own", "")
	testutil.AssertNoError(t, err)

	page, err := groups.GetUserGroups(alice.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 {
		t.Errorf("expected 3 groups, got %d", page.TotalItems)
	}
	for _, g := range page.Data {
		if g.Name == "Bob's own" {
			t.Error("listed a group the user does not belong to")
		}
	}
}
