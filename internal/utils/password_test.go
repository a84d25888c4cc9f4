package utils

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// PasswordTestSuite 密码工具测试套件
type PasswordTestSuite struct {
	suite.Suite
}

// 测试密码哈希
func (suite *PasswordTestSuite) TestHashPassword() {
	hash, err := HashPassword("MySecurePassword123!")
	suite.NoError(err)
	suite.NotEmpty(hash)
	suite.NotEqual("MySecurePassword123!", hash)

	// 格式：$argon2id$v=19$m=65536,t=1,p=4$salt$hash
	suite.True(strings.HasPrefix(hash, "$argon2id$"))
	suite.Contains(hash, "v=")
	suite.Contains(hash, "m=")
}

// 测试相同密码生成不同哈希
func (suite *PasswordTestSuite) TestHashPasswordUniqueness() {
	hash1, err1 := HashPassword("SamePassword123")
	hash2, err2 := HashPassword("SamePassword123")

	suite.NoError(err1)
	suite.NoError(err2)
	suite.NotEqual(hash1, hash2) // salt不同
}

// 测试密码验证
func (suite *PasswordTestSuite) TestVerifyPassword() {
	password := "CorrectPassword456"
	hash, _ := HashPassword(password)

	valid, err := VerifyPassword(password, hash)
	suite.NoError(err)
	suite.True(valid)

	invalid, err := VerifyPassword("WrongPassword", hash)
	suite.NoError(err)
	suite.False(invalid)

	// 大小写敏感
	invalidCase, err := VerifyPassword("correctpassword456", hash)
	suite.NoError(err)
	suite.False(invalidCase)
}

// 测试空密码
func (suite *PasswordTestSuite) TestEmptyPassword() {
	hash, err := HashPassword("")
	suite.NoError(err)
	suite.NotEmpty(hash)

	valid, err := VerifyPassword("", hash)
	suite.NoError(err)
	suite.True(valid)

	invalid, err := VerifyPassword("notEmpty", hash)
	suite.NoError(err)
	suite.False(invalid)
}

// 测试特殊字符密码
func (suite *PasswordTestSuite) TestSpecialCharacterPassword() {
	passwords := []string{
		"P@$$w0rd!",
		"密码123",
		"🔐Security🔒",
		"Tab\tSpace New\nLine",
		"Quote'Double\"Quote",
	}

	for _, password := range passwords {
		hash, err := HashPassword(password)
		suite.NoError(err)

		valid, err := VerifyPassword(password, hash)
		suite.NoError(err)
		suite.True(valid, "密码 %s 应该验证成功", password)
	}
}

// 测试无效哈希验证
func (suite *PasswordTestSuite) TestVerifyPasswordWithInvalidHash() {
	valid, err := VerifyPassword("password", "invalid-hash")
	suite.Error(err)
	suite.False(valid)

	valid, err = VerifyPassword("password", "")
	suite.Error(err)
	suite.False(valid)

	valid, err = VerifyPassword("password", "$argon2$invalid$format")
	suite.Error(err)
	suite.False(valid)

	// 前缀正确但字段数不对
	valid, err = VerifyPassword("password", "$argon2id$v=19$m=65536")
	suite.Error(err)
	suite.False(valid)
}

// 测试并发密码哈希
func (suite *PasswordTestSuite) TestConcurrentPasswordHashing() {
	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			password := fmt.Sprintf("Password%d", id)
			hash, err := HashPassword(password)
			suite.NoError(err)

			valid, err := VerifyPassword(password, hash)
			suite.NoError(err)
			suite.True(valid)

			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestPasswordSuite(t *testing.T) {
	suite.Run(t, new(PasswordTestSuite))
}
